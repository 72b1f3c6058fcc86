package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"herd-platform/internal/config"
	"herd-platform/internal/loader"
	"herd-platform/pkg/logging"
	"herd-platform/pkg/metrics"
)

func main() {
	// Parse command-line flags
	dataDir := flag.String("data-dir", "data/input", "Directory containing cows.parquet, sensors.parquet, measurements.parquet")
	apiURL := flag.String("api-url", "http://localhost:8080/api/v1", "Base URL of the herd API including the version prefix")
	concurrency := flag.Int("concurrency", 50, "Maximum number of in-flight requests")
	dryRun := flag.Bool("dry-run", false, "Print payloads without sending HTTP requests")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("herd-loader", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[LOADER_INIT] Starting bulk data load", logging.Fields{
		"version":     "1.0.0",
		"data_dir":    *dataDir,
		"api_url":     *apiURL,
		"concurrency": *concurrency,
		"dry_run":     *dryRun,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("herd_loader")

	// Read parquet inputs
	batch, err := loader.ReadBatch(*dataDir)
	if err != nil {
		logger.Fatal(ctx, "[LOADER_INIT_ERROR] Failed to read parquet files", logging.Fields{
			"data_dir": *dataDir,
		}, err)
	}

	// Load data
	l := loader.NewLoader(*apiURL, *concurrency, *dryRun, logger, metricsCollector)
	result, err := l.Run(ctx, batch)
	if err != nil {
		logger.Fatal(ctx, "[LOADER_RUN_ERROR] Load failed", logging.Fields{}, err)
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("LOAD COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Cows:            %d\n", len(batch.Cows))
	fmt.Printf("Sensors:         %d\n", len(batch.Sensors))
	fmt.Printf("Measurements:    %d\n", len(batch.Measurements))
	fmt.Printf("Total Rows:      %d\n", result.TotalRows)
	fmt.Printf("Successful Rows: %d\n", result.SuccessfulRows)
	fmt.Printf("Failed Rows:     %d\n", result.FailedRows)
	fmt.Printf("Duration:        %v\n", result.Duration)
	if result.Duration.Seconds() > 0 {
		fmt.Printf("Rows/Second:     %.2f\n", float64(result.SuccessfulRows)/result.Duration.Seconds())
	}

	if result.FailedRows > 0 {
		os.Exit(1)
	}
}
