package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"datapipe/internal/config"
	"datapipe/internal/container"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := appConfig.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := run(appConfig); err != nil {
		log.Fatalf("Pipeline run failed: %v", err)
	}
}

func run(appConfig *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appContainer, err := container.New(appConfig)
	if err != nil {
		return err
	}
	defer appContainer.Shutdown(context.Background())

	log.Printf("Starting run %s over %s", appContainer.RunID, appConfig.Paths.DataDir)

	summary, err := appContainer.Pipeline.Run(ctx)
	appContainer.LogUsageSummary(ctx)
	if err != nil {
		return err
	}

	log.Printf("Processed %d files into database %s (%d failed) in %d ms",
		len(summary.Processed), summary.Database, len(summary.Failed), summary.RuntimeMs)
	return nil
}
