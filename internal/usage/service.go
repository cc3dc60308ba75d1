package usage

import (
	"context"
	"log"
	"time"

	"datapipe/models"
	"datapipe/ports"

	"github.com/google/uuid"
)

// Service handles LLM usage tracking and persistence
type Service struct {
	repo  ports.LLMUsageRepository
	runID uuid.UUID
}

// NewService creates a usage service that files records under runID
func NewService(repo ports.LLMUsageRepository, runID uuid.UUID) *Service {
	return &Service{repo: repo, runID: runID}
}

// RunID returns the run the service records usage for
func (s *Service) RunID() uuid.UUID {
	return s.runID
}

// RecordUsage records LLM usage for one call made while processing a table.
// Tracking failures are logged and never fail the caller.
func (s *Service) RecordUsage(ctx context.Context, tableName, operationType string, usage *UsageData) error {
	if usage == nil {
		log.Printf("[UsageService] ERROR: nil usage data provided")
		return nil
	}

	if usage.PromptTokens < 0 || usage.CompletionTokens < 0 || usage.TotalTokens < 0 {
		log.Printf("[UsageService] ERROR: invalid token counts: %+v", usage)
		return nil
	}

	llmUsage := &models.LLMUsage{
		ID:               uuid.New(),
		RunID:            s.runID,
		TableName:        tableName,
		Provider:         usage.Provider,
		Model:            usage.Model,
		OperationType:    operationType,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
		CreatedAt:        time.Now(),
	}

	if err := s.persistWithRetry(ctx, llmUsage); err != nil {
		log.Printf("[UsageService] ERROR: failed to persist usage after retries: %v", err)
	}
	return nil
}

// persistWithRetry attempts to persist usage with linear backoff
func (s *Service) persistWithRetry(ctx context.Context, usage *models.LLMUsage) error {
	const maxRetries = 3
	const baseDelay = 100 * time.Millisecond

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err = s.repo.RecordUsage(ctx, usage); err == nil {
			return nil
		}

		if attempt < maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt+1) * baseDelay):
			}
		}
	}
	return err
}

// GetRunUsageSummary returns aggregated usage for the service's run
func (s *Service) GetRunUsageSummary(ctx context.Context) (*models.RunUsageSummary, error) {
	return s.repo.GetRunUsageSummary(ctx, s.runID)
}

// GetRunUsage returns detailed usage records for the service's run
func (s *Service) GetRunUsage(ctx context.Context) ([]*models.LLMUsage, error) {
	return s.repo.GetRunUsage(ctx, s.runID)
}
