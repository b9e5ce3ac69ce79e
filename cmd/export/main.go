package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/raaihank/lgpd-sentinel/internal/config"
	"github.com/raaihank/lgpd-sentinel/internal/export"
	"github.com/raaihank/lgpd-sentinel/internal/logger"
	"go.uber.org/zap"
)

func main() {
	var (
		configPath = flag.String("config", "", "Configuration file path")
		inputFile  = flag.String("input", "", "Submission log CSV (default: storage.submissions_file)")
		outputFile = flag.String("output", "", "Parquet output file (default: input with .parquet extension)")
		batchSize  = flag.Int("batch-size", 1000, "Rows between cancellation checks")
		verify     = flag.Bool("verify", false, "Read the Parquet file back and check the row count")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	input := *inputFile
	if input == "" {
		input = cfg.Storage.SubmissionsFile
	}
	output := *outputFile
	if output == "" {
		output = strings.TrimSuffix(input, ".csv") + ".parquet"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling export...")
		cancel()
	}()

	exporter := export.NewExporter(&export.Config{BatchSize: *batchSize}, log)
	result, err := exporter.ExportFile(ctx, input, output)
	if err != nil {
		log.Fatal("Export failed", zap.Error(err))
	}

	if *verify {
		if err := export.Verify(result); err != nil {
			log.Fatal("Export verification failed", zap.Error(err))
		}
		log.Info("Export verified", zap.String("output", result.Output), zap.Int64("rows", result.Written))
	}

	fmt.Printf("Exported %d of %d rows (%d sensitive) to %s in %s\n",
		result.Written, result.TotalRecords, result.Sensitive, result.Output, result.Duration)
}
