package app

import (
	"context"
	"sync"
	"time"

	"datapipe/adapters/csvsource"
	"datapipe/domain/profile"
	"datapipe/domain/table"
	"datapipe/internal"
	"datapipe/internal/cleaning"
	"datapipe/internal/errors"
	"datapipe/internal/profiling"
	"datapipe/ports"

	"golang.org/x/sync/errgroup"
)

// Cleaner coerces a loaded table to the types of its profile
type Cleaner interface {
	CleanData(raw *table.Raw, p *profile.Profile) (*table.Clean, error)
}

// Pipeline runs every CSV file of a data directory through profiling,
// cleaning, loading, model analysis and charting
type Pipeline struct {
	source     ports.CSVSource
	profiler   ports.ProfilerPort
	cleaner    Cleaner
	loader     ports.TableLoader
	analyzer   ports.AnalyzerPort
	visualizer ports.VisualizerPort

	concurrency int
	logger      *internal.Logger

	// OnDatabase runs once the run's database is known, before any file
	// is processed
	OnDatabase func(ctx context.Context, dbName string) error
}

// Options holds the optional collaborators of a pipeline
type Options struct {
	// Visualizer is nil when charts are disabled
	Visualizer  ports.VisualizerPort
	Concurrency int
	Logger      *internal.Logger
}

// NewPipeline creates a pipeline
func NewPipeline(source ports.CSVSource, profiler ports.ProfilerPort, cleaner Cleaner, loader ports.TableLoader, analyzer ports.AnalyzerPort, opts Options) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = internal.NewDefaultLogger("Pipeline")
	}
	return &Pipeline{
		source:      source,
		profiler:    profiler,
		cleaner:     cleaner,
		loader:      loader,
		analyzer:    analyzer,
		visualizer:  opts.Visualizer,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
	}
}

// Result is the outcome of processing one CSV file
type Result struct {
	File               string `json:"file"`
	TableName          string `json:"table_name"`
	Rows               int    `json:"rows"`
	RowsLoaded         int64  `json:"rows_loaded"`
	Analysis           string `json:"analysis,omitempty"`
	AnalysisLog        string `json:"analysis_log,omitempty"`
	SQLTransformations string `json:"sql_transformations,omitempty"`
	SQLLog             string `json:"sql_log,omitempty"`
	VisualizationPath  string `json:"visualization_path,omitempty"`
	RuntimeMs          int64  `json:"runtime_ms"`
}

// ProcessCSV profiles, cleans and loads one file, then asks the model about
// it and charts it. Profiling, loading and database failures fail the file.
// Model and chart failures are logged and leave their fields empty.
func (p *Pipeline) ProcessCSV(ctx context.Context, dbName, filename string) (*Result, error) {
	start := time.Now()
	path := p.source.Path(filename)
	p.logger.Info("Processing file: %s", path)

	prof := p.profiler.ProfileCSV(ctx, path)
	if prof.IsEmpty() {
		return nil, errors.ProfilingFailed(filename, errors.InvalidInput("empty profile"))
	}
	p.logger.Info("Profiling report for %s:\n%s", filename, profiling.GenerateReport(prof))

	raw, err := p.source.LoadCSV(ctx, filename)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", filename)
	}

	cleaned, err := p.cleaner.CleanData(raw, prof)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to clean %s", filename)
	}
	sqlTypes := cleaning.SQLDataTypes(prof)
	p.logger.Debug("SQL types for %s: %v", filename, sqlTypes)

	tableName := csvsource.TableName(filename)
	cleaned.Name = tableName
	if err := p.loader.CreateTable(ctx, dbName, cleaned, sqlTypes); err != nil {
		return nil, err
	}
	loaded, err := p.loader.InsertData(ctx, dbName, cleaned, sqlTypes)
	if err != nil {
		return nil, err
	}

	result := &Result{
		File:       filename,
		TableName:  tableName,
		Rows:       len(cleaned.Rows),
		RowsLoaded: loaded,
	}

	p.analyze(ctx, result, prof)

	if p.visualizer != nil {
		visPath, err := p.visualizer.CreateVisualizations(ctx, cleaned, tableName)
		if err != nil {
			p.logger.Error("Error creating visualization for %s: %v", tableName, err)
		} else if visPath != "" {
			p.logger.Info("Visualizations saved to: %s", visPath)
			result.VisualizationPath = visPath
		}
	}

	result.RuntimeMs = time.Since(start).Milliseconds()
	return result, nil
}

func (p *Pipeline) analyze(ctx context.Context, result *Result, prof *profile.Profile) {
	analysis, err := p.analyzer.AnalyzeStructure(ctx, result.TableName, prof)
	if err != nil {
		p.logger.Error("An error occurred during structure analysis of %s: %v", result.File, err)
		return
	}
	result.Analysis = analysis.Content
	result.AnalysisLog = analysis.LogFile
	p.logger.Info("Analysis for %s:\n%s", result.File, analysis.Content)
	p.logger.Info("Analysis log saved to: %s", analysis.LogFile)

	sql, err := p.analyzer.GenerateSQLTransformations(ctx, result.TableName, analysis.Content)
	if err != nil {
		p.logger.Error("An error occurred during SQL transformation generation for %s: %v", result.File, err)
		return
	}
	result.SQLTransformations = sql.Content
	result.SQLLog = sql.LogFile
	p.logger.Info("SQL Transformations for %s:\n%s", result.File, sql.Content)
	p.logger.Info("SQL transformations log saved to: %s", sql.LogFile)
}

// RunSummary is the outcome of a full run
type RunSummary struct {
	Database  string            `json:"database"`
	Processed []*Result         `json:"processed"`
	Failed    map[string]string `json:"failed"`
	RuntimeMs int64             `json:"runtime_ms"`
}

// Run processes every CSV file of the source into one database. Files are
// processed concurrently; a failing file is logged and does not stop the
// others. Run fails only when there is nothing to process or no database.
func (p *Pipeline) Run(ctx context.Context) (*RunSummary, error) {
	start := time.Now()

	files, err := p.source.CSVFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.NotFound("CSV files in the dataset directory")
	}

	dbName, err := p.loader.GetOrCreateDatabase(ctx, files)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create or get a database")
	}
	p.logger.Info("Using database: %s", dbName)

	if p.OnDatabase != nil {
		if err := p.OnDatabase(ctx, dbName); err != nil {
			return nil, err
		}
	}

	results := make([]*Result, len(files))
	var mu sync.Mutex
	failed := make(map[string]string)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			res, err := p.ProcessCSV(gctx, dbName, f)
			if err != nil {
				p.logger.Error("Error processing %s: %v", f, err)
				mu.Lock()
				failed[f] = err.Error()
				mu.Unlock()
				return nil
			}
			results[i] = res
			return nil
		})
	}
	g.Wait()

	summary := &RunSummary{Database: dbName, Failed: failed}
	for _, res := range results {
		if res == nil {
			p.logger.Warn("Failed to process a CSV file")
			continue
		}
		p.logger.Info("Processed table: %s", res.TableName)
		summary.Processed = append(summary.Processed, res)
	}
	summary.RuntimeMs = time.Since(start).Milliseconds()

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}
