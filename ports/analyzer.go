package ports

import (
	"context"

	"datapipe/domain/profile"
)

// AnalysisResult is a model answer and the interaction log it was written to
type AnalysisResult struct {
	Content string
	LogFile string
	Usage   *UsageData
}

// AnalyzerPort reviews profiled tables with a language model
type AnalyzerPort interface {
	AnalyzeStructure(ctx context.Context, tableName string, p *profile.Profile) (*AnalysisResult, error)
	GenerateSQLTransformations(ctx context.Context, tableName, analysis string) (*AnalysisResult, error)
}
