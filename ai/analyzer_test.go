package ai

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"datapipe/adapters/llm"
	"datapipe/domain/profile"
	"datapipe/internal/profiling"
	"datapipe/models"
	"datapipe/ports"
)

type mockUsageRecorder struct {
	mock.Mock
}

func (m *mockUsageRecorder) RecordUsage(ctx context.Context, tableName, operationType string, usage *ports.UsageData) error {
	args := m.Called(ctx, tableName, operationType, usage)
	return args.Error(0)
}

func testProfile(t *testing.T) *profile.Profile {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,region\n1,north\n2,\n3,south\n"), 0o644))

	p, err := profiling.NewDataProfiler(10, 1024).Profile(context.Background(), path)
	require.NoError(t, err)
	return p
}

func newTestAnalyzer(t *testing.T, client ports.LLMClient, usage UsageRecorder) (*Analyzer, *InteractionLogger) {
	t.Helper()
	logger := NewInteractionLogger(t.TempDir())
	a := NewAnalyzer(client, NewPromptManager(""), logger, usage, AnalyzerConfig{Model: "claude-test"})
	return a, logger
}

func TestAnalyzeStructure(t *testing.T) {
	client := &llm.MockLLMClient{Response: "## Summary\nLooks fine."}
	usage := new(mockUsageRecorder)
	usage.On("RecordUsage", mock.Anything, "sales", models.OpStructureAnalysis, mock.Anything).Return(nil).Once()

	a, logger := newTestAnalyzer(t, client, usage)
	result, err := a.AnalyzeStructure(context.Background(), "sales", testProfile(t))
	require.NoError(t, err)

	assert.Equal(t, "## Summary\nLooks fine.", result.Content)
	require.Equal(t, 1, client.Calls())

	req := client.Requests[0]
	assert.Equal(t, "claude-test", req.Model)
	assert.Equal(t, 1024, req.MaxTokens)
	assert.Contains(t, req.System, "expert data analyst")
	prompt := req.Messages[0].Content
	assert.Contains(t, prompt, `Columns: ["id","region"]`)
	assert.Contains(t, prompt, `"inferred_type":"int64"`)
	assert.Contains(t, prompt, `"null_count":1`)
	assert.NotContains(t, prompt, "{FULL_PROFILE}")

	require.NotEmpty(t, result.LogFile)
	entry, err := logger.ReadLog(result.LogFile)
	require.NoError(t, err)
	assert.Equal(t, models.OpStructureAnalysis, entry.AnalysisType)
	assert.Equal(t, prompt, entry.Prompt)

	usage.AssertExpectations(t)
}

func TestAnalyzeStructureCapsDistinctValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wide.csv")
	var b strings.Builder
	b.WriteString("code\n")
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&b, "c%02d\n", i)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	p, err := profiling.NewDataProfiler(10, 1024).Profile(context.Background(), path)
	require.NoError(t, err)

	client := &llm.MockLLMClient{}
	a, _ := newTestAnalyzer(t, client, nil)
	_, err = a.AnalyzeStructure(context.Background(), "wide", p)
	require.NoError(t, err)

	prompt := client.Requests[0].Messages[0].Content
	assert.Contains(t, prompt, `"c19"`)
	assert.NotContains(t, prompt, `"c20"`)
	assert.Contains(t, prompt, `"unique_count":50`)
}

func TestAnalyzeStructureRejectsEmptyProfile(t *testing.T) {
	client := &llm.MockLLMClient{}
	a, _ := newTestAnalyzer(t, client, nil)

	_, err := a.AnalyzeStructure(context.Background(), "t", profile.Empty())
	assert.Error(t, err)
	assert.Equal(t, 0, client.Calls())
}

func TestGenerateSQLTransformations(t *testing.T) {
	client := &llm.MockLLMClient{Response: "UPDATE sales SET region = 'unknown' WHERE region = '';"}
	a, _ := newTestAnalyzer(t, client, nil)

	result, err := a.GenerateSQLTransformations(context.Background(), "sales", "Region has blanks. Literal {TABLE} stays.")
	require.NoError(t, err)
	assert.Contains(t, result.Content, "UPDATE sales")

	req := client.Requests[0]
	assert.Contains(t, req.System, "expert SQL developer")
	assert.Contains(t, req.Messages[0].Content, `PostgreSQL table "sales"`)
	assert.Contains(t, req.Messages[0].Content, "Literal {TABLE} stays.")
}

func TestGenerateSQLTransformationsErrors(t *testing.T) {
	client := &llm.MockLLMClient{Error: fmt.Errorf("overloaded")}
	a, _ := newTestAnalyzer(t, client, nil)

	_, err := a.GenerateSQLTransformations(context.Background(), "sales", "  ")
	assert.Error(t, err)
	assert.Equal(t, 0, client.Calls())

	_, err = a.GenerateSQLTransformations(context.Background(), "sales", "analysis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
}
