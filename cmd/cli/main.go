package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"datapipe/ai"
	"datapipe/app"
	"datapipe/internal/config"
	"datapipe/internal/container"
	"datapipe/internal/profiling"
	"datapipe/ui"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "datapipe",
		Short:         "Profile, clean, load and analyze CSV files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := godotenv.Load(); err != nil {
				log.Println("No .env file found, using system environment variables")
			}
		},
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newProfileCmd(),
		newServeCmd(),
		newLogsCmd(),
		newMigrateCmd(),
		newUsageCmd(),
	)
	return rootCmd
}

func newRunCmd() *cobra.Command {
	var dataDir string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline over every CSV file of the data directory",
		Long: `Profile, clean and load every CSV file of DATA_DIR into one PostgreSQL
database, ask the model for a structure analysis and SQL transformations,
and write a chart workbook per file.

Requires ANTHROPIC_API_KEY and DB_PASS.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dataDir != "" {
				cfg.Paths.DataDir = dataDir
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runPipeline(cmd.Context(), cmd.OutOrStdout(), cfg, asJSON)
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory of CSV files (overrides DATA_DIR)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run summary as JSON")

	return cmd
}

func runPipeline(ctx context.Context, out io.Writer, cfg *config.Config, asJSON bool) error {
	c, err := container.New(cfg)
	if err != nil {
		return err
	}
	defer c.Shutdown(context.Background())

	summary, err := c.Pipeline.Run(ctx)
	c.LogUsageSummary(ctx)
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(out, summary)
	}
	printSummary(out, summary)
	return nil
}

func printSummary(out io.Writer, summary *app.RunSummary) {
	fmt.Fprintf(out, "Database: %s\n", summary.Database)
	for _, r := range summary.Processed {
		fmt.Fprintf(out, "  %-30s %8d rows loaded  %6d ms\n", r.TableName, r.RowsLoaded, r.RuntimeMs)
	}
	for file, reason := range summary.Failed {
		fmt.Fprintf(out, "  %-30s FAILED: %s\n", file, reason)
	}
	fmt.Fprintf(out, "Processed %d files (%d failed) in %d ms\n",
		len(summary.Processed), len(summary.Failed), summary.RuntimeMs)
}

func newProfileCmd() *cobra.Command {
	var asJSON bool
	var sampleSize int
	var chunkSize int

	cmd := &cobra.Command{
		Use:   "profile [csv-file]",
		Short: "Profile one CSV file and print its report",
		Long: `Profile one CSV file without touching the database or the model.

Example: datapipe profile dataset/sales.csv --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if sampleSize <= 0 {
				sampleSize = cfg.Profiling.SampleSize
			}
			if chunkSize <= 0 {
				chunkSize = cfg.Profiling.ChunkSize
			}

			profiler := profiling.NewDataProfiler(sampleSize, chunkSize)
			p, err := profiler.Profile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			fmt.Fprint(cmd.OutOrStdout(), profiling.GenerateReport(p))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the profile as JSON instead of the text report")
	cmd.Flags().IntVar(&sampleSize, "sample-size", 0, "Rows read for the sample analysis (default PROFILE_SAMPLE_SIZE)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Bytes per full-scan chunk (default PROFILE_CHUNK_SIZE)")

	return cmd
}

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the profiling API and the interaction log viewer",
		Long: `Serve the HTTP API:

  GET  /healthz          liveness
  POST /api/profile      profile an uploaded CSV (multipart field "file")
  POST /api/runs         start a pipeline run in the background
  GET  /api/runs/latest  state of the latest run
  GET  /logs/            browse the model interaction logs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}

			c, err := container.New(cfg)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			server := ui.NewServer(ui.Config{
				Profiler: c.Profiler,
				Runner:   c.Pipeline,
				Logs:     c.Logs,
				AfterRun: func(ctx context.Context, _ *app.RunSummary, _ error) {
					c.LogUsageSummary(ctx)
				},
			})
			return server.Start(":" + cfg.Server.Port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Port to listen on (overrides PORT)")

	return cmd
}

func newLogsCmd() *cobra.Command {
	var dir string

	logger := func() (*ai.InteractionLogger, error) {
		if dir != "" {
			return ai.NewInteractionLogger(dir), nil
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		return ai.NewInteractionLogger(cfg.Paths.LLMLogDir), nil
	}

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Inspect the model interaction logs",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "Log directory (overrides LLM_LOG_DIR)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List logged interactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, err := logger()
			if err != nil {
				return err
			}
			names, err := logs.ListLogs()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show [log-file]",
		Short: "Print the prompt and response of one interaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, err := logger()
			if err != nil {
				return err
			}
			entry, err := logs.ReadLog(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s on %s at %s\n\n", entry.AnalysisType, entry.Table, entry.Timestamp)
			fmt.Fprintf(out, "--- Prompt ---\n%s\n\n--- Response ---\n%s\n", entry.Prompt, entry.Response)
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [database]",
		Short: "Create the bookkeeping tables in an existing database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			c, err := container.New(cfg)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			if err := c.DBLoader.Migrate(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated database %s\n", args[0])
			return nil
		},
	}
}

func newUsageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage [database] [run-id]",
		Short: "Print the token usage of a past run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			summary, err := runUsage(cmd.Context(), cfg, args[0], args[1])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), summary)
		},
	}
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
