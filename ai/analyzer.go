// Package ai asks a language model to review profiled CSV tables and to
// propose SQL that cleans them up.
package ai

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"datapipe/domain/profile"
	"datapipe/internal/errors"
	"datapipe/models"
	"datapipe/ports"
)

// DefaultPromptValueLimit caps the distinct values listed per column in a
// structure analysis prompt
const DefaultPromptValueLimit = 20

// UsageRecorder receives token usage for every model call
type UsageRecorder interface {
	RecordUsage(ctx context.Context, tableName, operationType string, usage *ports.UsageData) error
}

// AnalyzerConfig holds the model settings used for every request
type AnalyzerConfig struct {
	Model            string
	MaxTokens        int
	Temperature      float64
	PromptValueLimit int
}

// Analyzer runs the structure analysis and SQL transformation prompts
type Analyzer struct {
	client  ports.LLMClient
	prompts *PromptManager
	logger  *InteractionLogger
	usage   UsageRecorder
	config  AnalyzerConfig
}

// Result is a model answer and the interaction log it was written to
type Result = ports.AnalysisResult

var _ ports.AnalyzerPort = (*Analyzer)(nil)

// NewAnalyzer creates an analyzer. usage may be nil.
func NewAnalyzer(client ports.LLMClient, prompts *PromptManager, logger *InteractionLogger, usage UsageRecorder, config AnalyzerConfig) *Analyzer {
	if config.MaxTokens <= 0 {
		config.MaxTokens = 1024
	}
	if config.PromptValueLimit <= 0 {
		config.PromptValueLimit = DefaultPromptValueLimit
	}
	return &Analyzer{
		client:  client,
		prompts: prompts,
		logger:  logger,
		usage:   usage,
		config:  config,
	}
}

// AnalyzeStructure asks the model for a summary of the table, its data
// quality issues and cleaning suggestions
func (a *Analyzer) AnalyzeStructure(ctx context.Context, tableName string, p *profile.Profile) (*Result, error) {
	if p.IsEmpty() {
		return nil, errors.InvalidInput("cannot analyze an empty profile")
	}

	summary := p.Summarize(a.config.PromptValueLimit)
	replacements := map[string]string{
		"TABLE":        tableName,
		"COLUMNS":      toJSON(summary.Columns),
		"DATA_TYPES":   toJSON(summary.SampleAnalysis),
		"FULL_PROFILE": toJSON(summary.FullProfile),
	}

	return a.run(ctx, tableName, models.OpStructureAnalysis,
		PromptStructureAnalysisSystem, PromptStructureAnalysis, replacements)
}

// GenerateSQLTransformations asks the model for SQL that addresses the
// issues raised in a structure analysis
func (a *Analyzer) GenerateSQLTransformations(ctx context.Context, tableName, analysis string) (*Result, error) {
	if strings.TrimSpace(analysis) == "" {
		return nil, errors.InvalidInput("cannot generate SQL transformations without an analysis")
	}

	replacements := map[string]string{
		"TABLE":    tableName,
		"ANALYSIS": analysis,
	}

	return a.run(ctx, tableName, models.OpSQLTransformations,
		PromptSQLTransformationsSystem, PromptSQLTransformations, replacements)
}

// SetUsageRecorder replaces the usage recorder. It must not be called while
// requests are in flight.
func (a *Analyzer) SetUsageRecorder(usage UsageRecorder) {
	a.usage = usage
}

func (a *Analyzer) run(ctx context.Context, tableName, operation, systemPrompt, userPrompt string, replacements map[string]string) (*Result, error) {
	system, err := a.prompts.RenderPrompt(systemPrompt, replacements)
	if err != nil {
		return nil, errors.Wrap(err, "failed to render system prompt")
	}
	prompt, err := a.prompts.RenderPrompt(userPrompt, replacements)
	if err != nil {
		return nil, errors.Wrap(err, "failed to render prompt")
	}

	resp, err := a.client.Complete(ctx, &ports.CompletionRequest{
		Model:       a.config.Model,
		System:      system,
		Messages:    []ports.Message{{Role: "user", Content: prompt}},
		MaxTokens:   a.config.MaxTokens,
		Temperature: a.config.Temperature,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "%s failed for %s", operation, tableName)
	}

	if a.usage != nil && resp.Usage != nil {
		a.usage.RecordUsage(ctx, tableName, operation, resp.Usage)
	}

	result := &Result{Content: resp.Content, Usage: resp.Usage}
	if a.logger != nil {
		logFile, err := a.logger.LogInteraction(tableName, prompt, resp.Content, operation)
		if err != nil {
			log.Printf("[Analyzer] Error logging interaction: %v", err)
		}
		result.LogFile = logFile
	}
	return result, nil
}

func toJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
