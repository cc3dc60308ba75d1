package container

import (
	"context"
	"fmt"
	"log"

	"datapipe/adapters/csvsource"
	"datapipe/adapters/llm"
	"datapipe/adapters/postgres"
	"datapipe/ai"
	"datapipe/app"
	"datapipe/internal"
	"datapipe/internal/cleaning"
	"datapipe/internal/config"
	"datapipe/internal/profiling"
	"datapipe/internal/usage"
	"datapipe/internal/visualize"
	"datapipe/ports"

	"github.com/google/uuid"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	RunID  uuid.UUID

	// Data path
	Source     *csvsource.CSVLoader
	Profiler   *profiling.DataProfiler
	Cleaner    *cleaning.DataCleaner
	DBLoader   *postgres.DBLoader
	Visualizer *visualize.Visualizer

	// AI and intelligence components
	LLMClient ports.LLMClient
	Analyzer  *ai.Analyzer
	Logs      *ai.InteractionLogger
	Usage     *usage.Service

	Pipeline *app.Pipeline
}

// New creates a new dependency injection container. The LLM client is the
// mock client when no API key is configured.
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config:     cfg,
		RunID:      uuid.New(),
		Source:     csvsource.NewCSVLoader(cfg.Paths.DataDir),
		Profiler:   profiling.NewDataProfiler(cfg.Profiling.SampleSize, cfg.Profiling.ChunkSize),
		Cleaner:    cleaning.NewDataCleaner(cfg.Pipeline.HighNullThreshold),
		DBLoader:   postgres.NewDBLoader(cfg.Database),
		Visualizer: visualize.NewVisualizer(cfg.Paths.OutputDir),
	}

	if err := c.initAIComponents(); err != nil {
		return nil, fmt.Errorf("failed to initialize AI components: %w", err)
	}

	c.initPipeline()
	return c, nil
}

// initAIComponents initializes the model client and analyzer
func (c *Container) initAIComponents() error {
	if c.Config.AI.AnthropicKey == "" {
		log.Printf("[Container] ANTHROPIC_API_KEY not set, using mock LLM client")
		c.LLMClient = &llm.MockLLMClient{}
	} else {
		client, err := llm.NewClient(llm.Config{
			APIKey:            c.Config.AI.AnthropicKey,
			BaseURL:           c.Config.AI.BaseURL,
			Timeout:           c.Config.AI.Timeout,
			RequestsPerMinute: c.Config.AI.RequestsPerMinute,
		})
		if err != nil {
			return err
		}
		c.LLMClient = client
	}

	c.Logs = ai.NewInteractionLogger(c.Config.Paths.LLMLogDir)
	c.Analyzer = ai.NewAnalyzer(
		c.LLMClient,
		ai.NewPromptManager(c.Config.AI.PromptsDir),
		c.Logs,
		nil,
		ai.AnalyzerConfig{
			Model:       c.Config.AI.Model,
			MaxTokens:   c.Config.AI.MaxTokens,
			Temperature: c.Config.AI.Temperature,
		},
	)
	return nil
}

func (c *Container) initPipeline() {
	opts := app.Options{
		Concurrency: c.Config.Pipeline.Concurrency,
		Logger:      internal.NewDefaultLogger("Pipeline"),
	}
	if c.Config.Pipeline.Visualize {
		opts.Visualizer = c.Visualizer
	}

	c.Pipeline = app.NewPipeline(c.Source, c.Profiler, c.Cleaner, c.DBLoader, c.Analyzer, opts)
	c.Pipeline.OnDatabase = c.InitWithDatabase
}

// InitWithDatabase initializes components that require the run's database:
// token usage is recorded into its llm_usage table from here on
func (c *Container) InitWithDatabase(ctx context.Context, dbName string) error {
	db, err := c.DBLoader.DB(ctx, dbName)
	if err != nil {
		return err
	}

	c.Usage = usage.NewService(postgres.NewLLMUsageRepository(db), c.RunID)
	c.Analyzer.SetUsageRecorder(c.Usage)

	log.Printf("[Container] Recording LLM usage for run %s in database %s", c.RunID, dbName)
	return nil
}

// LogUsageSummary logs the token usage of the run, when any was recorded
func (c *Container) LogUsageSummary(ctx context.Context) {
	if c.Usage == nil {
		return
	}
	summary, err := c.Usage.GetRunUsageSummary(ctx)
	if err != nil {
		log.Printf("[Container] Warning: failed to read usage summary: %v", err)
		return
	}
	log.Printf("[Container] Run %s used %d tokens over %d requests",
		c.RunID, summary.TotalTokens, summary.RequestCount)
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	log.Printf("[Container] Shutting down")
	return c.DBLoader.Close()
}
