package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMUsageJSONFieldNames(t *testing.T) {
	usage := LLMUsage{
		RunID:         uuid.New(),
		TableName:     "sales",
		Provider:      "anthropic",
		OperationType: OpStructureAnalysis,
		PromptTokens:  10,
		TotalTokens:   15,
		CreatedAt:     time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(usage)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "sales", fields["table_name"])
	assert.Equal(t, "structure_analysis", fields["operation_type"])
	assert.EqualValues(t, 15, fields["total_tokens"])
}
