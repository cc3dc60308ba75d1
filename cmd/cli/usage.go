package main

import (
	"context"
	"fmt"

	"datapipe/adapters/postgres"
	"datapipe/internal/config"
	"datapipe/internal/errors"
	"datapipe/internal/usage"
	"datapipe/models"

	"github.com/google/uuid"
)

// runUsage reads the usage summary of runID from the llm_usage table of dbName
func runUsage(ctx context.Context, cfg *config.Config, dbName, runID string) (*models.RunUsageSummary, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, errors.InvalidInput(fmt.Sprintf("invalid run id %q", runID))
	}

	loader := postgres.NewDBLoader(cfg.Database)
	defer loader.Close()

	db, err := loader.DB(ctx, dbName)
	if err != nil {
		return nil, err
	}

	service := usage.NewService(postgres.NewLLMUsageRepository(db), id)
	return service.GetRunUsageSummary(ctx)
}
