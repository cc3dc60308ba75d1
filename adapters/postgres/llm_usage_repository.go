package postgres

import (
	"context"

	"datapipe/models"
	"datapipe/ports"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// LLMUsageRepositoryImpl implements LLMUsageRepository for PostgreSQL
type LLMUsageRepositoryImpl struct {
	db *sqlx.DB
}

// NewLLMUsageRepository creates a new PostgreSQL LLM usage repository
func NewLLMUsageRepository(db *sqlx.DB) ports.LLMUsageRepository {
	return &LLMUsageRepositoryImpl{db: db}
}

// RecordUsage records LLM usage for an API call
func (r *LLMUsageRepositoryImpl) RecordUsage(ctx context.Context, usage *models.LLMUsage) error {
	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO llm_usage (
			id, run_id, table_name, provider, model, operation_type,
			prompt_tokens, completion_tokens, total_tokens, created_at
		) VALUES (
			:id, :run_id, :table_name, :provider, :model, :operation_type,
			:prompt_tokens, :completion_tokens, :total_tokens, :created_at
		)
	`, usage)
	return err
}

// GetRunUsage retrieves the usage records of one pipeline run
func (r *LLMUsageRepositoryImpl) GetRunUsage(ctx context.Context, runID uuid.UUID) ([]*models.LLMUsage, error) {
	var usages []*models.LLMUsage
	err := r.db.SelectContext(ctx, &usages, `
		SELECT id, run_id, table_name, provider, model, operation_type,
		       prompt_tokens, completion_tokens, total_tokens, created_at
		FROM llm_usage
		WHERE run_id = $1
		ORDER BY created_at
	`, runID)
	return usages, err
}

// GetRunUsageSummary returns aggregated usage statistics for a run
func (r *LLMUsageRepositoryImpl) GetRunUsageSummary(ctx context.Context, runID uuid.UUID) (*models.RunUsageSummary, error) {
	summary := &models.RunUsageSummary{
		RunID:       runID,
		ByOperation: make(map[string]models.ModelUsage),
	}

	err := r.db.GetContext(ctx, summary, `
		SELECT
			COUNT(*) as request_count,
			COALESCE(SUM(total_tokens), 0) as total_tokens,
			COALESCE(SUM(prompt_tokens), 0) as total_prompt_tokens,
			COALESCE(SUM(completion_tokens), 0) as total_completion_tokens
		FROM llm_usage
		WHERE run_id = $1
	`, runID)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT operation_type, model, SUM(total_tokens) as total_tokens, COUNT(*) as request_count
		FROM llm_usage
		WHERE run_id = $1
		GROUP BY operation_type, model
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var op string
		var usage models.ModelUsage
		if err := rows.Scan(&op, &usage.Model, &usage.TotalTokens, &usage.RequestCount); err != nil {
			return nil, err
		}
		summary.ByOperation[op] = usage
	}

	return summary, rows.Err()
}
