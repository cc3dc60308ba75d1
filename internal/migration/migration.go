package migration

import (
	"context"
	"log"

	"datapipe/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the bookkeeping tables the pipeline keeps next to
// the loaded CSV tables
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createLLMUsageTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create llm_usage table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createLLMUsageTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, LLMUsageTableSQL)
	return err
}

// LLMUsageTableSQL is the DDL of the llm_usage table
const LLMUsageTableSQL = `
		CREATE TABLE IF NOT EXISTS llm_usage (
			id UUID PRIMARY KEY,
			run_id UUID NOT NULL,
			table_name VARCHAR(255) NOT NULL,
			provider VARCHAR(50) NOT NULL,
			model VARCHAR(100) NOT NULL,
			operation_type VARCHAR(50) NOT NULL,
			prompt_tokens INTEGER NOT NULL DEFAULT 0,
			completion_tokens INTEGER NOT NULL DEFAULT 0,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_llm_usage_run_id ON llm_usage(run_id)",
		"CREATE INDEX IF NOT EXISTS idx_llm_usage_created_at ON llm_usage(created_at DESC)",
	}

	for _, idxSQL := range indexes {
		if _, err := db.ExecContext(ctx, idxSQL); err != nil {
			// Log but don't fail on index creation errors
			log.Printf("[Migration] Warning: failed to create index: %v", err)
		}
	}

	return nil
}
