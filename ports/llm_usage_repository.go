package ports

import (
	"context"

	"datapipe/models"

	"github.com/google/uuid"
)

// LLMUsageRepository defines the interface for LLM usage data operations
type LLMUsageRepository interface {
	// Record usage for an LLM call
	RecordUsage(ctx context.Context, usage *models.LLMUsage) error

	// Get usage records of one pipeline run
	GetRunUsage(ctx context.Context, runID uuid.UUID) ([]*models.LLMUsage, error)

	// Get aggregated usage for one pipeline run
	GetRunUsageSummary(ctx context.Context, runID uuid.UUID) (*models.RunUsageSummary, error)
}
