package usage

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"datapipe/models"
)

type mockUsageRepository struct {
	mock.Mock
}

func (m *mockUsageRepository) RecordUsage(ctx context.Context, usage *models.LLMUsage) error {
	args := m.Called(ctx, usage)
	return args.Error(0)
}

func (m *mockUsageRepository) GetRunUsage(ctx context.Context, runID uuid.UUID) ([]*models.LLMUsage, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).([]*models.LLMUsage), args.Error(1)
}

func (m *mockUsageRepository) GetRunUsageSummary(ctx context.Context, runID uuid.UUID) (*models.RunUsageSummary, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).(*models.RunUsageSummary), args.Error(1)
}

func TestRecordUsage(t *testing.T) {
	repo := new(mockUsageRepository)
	runID := uuid.New()
	svc := NewService(repo, runID)

	repo.On("RecordUsage", mock.Anything, mock.MatchedBy(func(u *models.LLMUsage) bool {
		return u.RunID == runID && u.TableName == "sales" &&
			u.OperationType == models.OpStructureAnalysis && u.TotalTokens == 30
	})).Return(nil).Once()

	err := svc.RecordUsage(context.Background(), "sales", models.OpStructureAnalysis, &UsageData{
		PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30, Model: "m", Provider: "anthropic",
	})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRecordUsageRetriesThenGivesUp(t *testing.T) {
	repo := new(mockUsageRepository)
	svc := NewService(repo, uuid.New())

	repo.On("RecordUsage", mock.Anything, mock.Anything).Return(fmt.Errorf("db down")).Times(3)

	err := svc.RecordUsage(context.Background(), "sales", models.OpSQLTransformations, &UsageData{TotalTokens: 1})
	assert.NoError(t, err)
	repo.AssertNumberOfCalls(t, "RecordUsage", 3)
}

func TestRecordUsageIgnoresBadData(t *testing.T) {
	repo := new(mockUsageRepository)
	svc := NewService(repo, uuid.New())

	assert.NoError(t, svc.RecordUsage(context.Background(), "t", "op", nil))
	assert.NoError(t, svc.RecordUsage(context.Background(), "t", "op", &UsageData{PromptTokens: -1}))
	repo.AssertNotCalled(t, "RecordUsage", mock.Anything, mock.Anything)
}

func TestGetRunUsageSummary(t *testing.T) {
	repo := new(mockUsageRepository)
	runID := uuid.New()
	svc := NewService(repo, runID)

	want := &models.RunUsageSummary{RunID: runID, TotalTokens: 7}
	repo.On("GetRunUsageSummary", mock.Anything, runID).Return(want, nil)

	got, err := svc.GetRunUsageSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, runID, svc.RunID())
}
