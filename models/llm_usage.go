package models

import (
	"time"

	"github.com/google/uuid"
)

// LLMUsage represents a single LLM API call's token usage
type LLMUsage struct {
	ID               uuid.UUID `json:"id" db:"id"`
	RunID            uuid.UUID `json:"run_id" db:"run_id"`
	TableName        string    `json:"table_name" db:"table_name"`
	Provider         string    `json:"provider" db:"provider"`             // 'anthropic', 'mock'
	Model            string    `json:"model" db:"model"`                   // 'claude-3-5-sonnet-20240620', etc.
	OperationType    string    `json:"operation_type" db:"operation_type"` // 'structure_analysis', 'sql_transformations'
	PromptTokens     int       `json:"prompt_tokens" db:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens" db:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens" db:"total_tokens"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// RunUsageSummary aggregates the token usage of one pipeline run
type RunUsageSummary struct {
	RunID                 uuid.UUID             `json:"run_id"`
	RequestCount          int                   `json:"request_count" db:"request_count"`
	TotalTokens           int                   `json:"total_tokens" db:"total_tokens"`
	TotalPromptTokens     int                   `json:"total_prompt_tokens" db:"total_prompt_tokens"`
	TotalCompletionTokens int                   `json:"total_completion_tokens" db:"total_completion_tokens"`
	ByOperation           map[string]ModelUsage `json:"by_operation"`
}

// ModelUsage represents usage aggregated by model
type ModelUsage struct {
	Model        string `json:"model"`
	TotalTokens  int    `json:"total_tokens"`
	RequestCount int    `json:"request_count"`
}

// Operation types for categorization
const (
	OpStructureAnalysis  = "structure_analysis"
	OpSQLTransformations = "sql_transformations"
)
