// Package export converts the submission log into Parquet for offline analysis.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/raaihank/lgpd-sentinel/internal/logger"
	"github.com/raaihank/lgpd-sentinel/internal/submissions"
	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"
)

// Exporter handles CSV to Parquet conversion
type Exporter struct {
	config *Config
	logger *logger.Logger
}

// NewExporter creates a new exporter
func NewExporter(cfg *Config, log *logger.Logger) *Exporter {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Exporter{config: cfg, logger: log.WithComponent("export")}
}

// ExportFile converts the CSV log at input into a Parquet file at output
func (e *Exporter) ExportFile(ctx context.Context, input, output string) (*Result, error) {
	e.logger.Info("Starting export", zap.String("input", input), zap.String("output", output))

	in, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV log: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	out, err := os.Create(output)
	if err != nil {
		return nil, fmt.Errorf("failed to create Parquet file: %w", err)
	}
	defer out.Close()

	result, err := e.Export(ctx, in, out)
	if err != nil {
		return result, err
	}
	result.Input = input
	result.Output = output

	if err := out.Sync(); err != nil {
		return result, fmt.Errorf("failed to sync Parquet file: %w", err)
	}
	return result, nil
}

// Export reads log rows from r and writes them to w as Parquet
func (e *Exporter) Export(ctx context.Context, r io.Reader, w io.Writer) (*Result, error) {
	start := time.Now()
	result := &Result{}

	entries, err := submissions.ReadEntries(r, e.logger)
	if err != nil {
		return result, fmt.Errorf("CSV processing failed: %w", err)
	}
	result.TotalRecords = int64(len(entries))

	writer := parquet.NewWriter(w, parquet.SchemaOf(new(Row)))
	for i, entry := range entries {
		if i%e.config.BatchSize == 0 {
			if err := ctx.Err(); err != nil {
				return result, err
			}
		}

		row := RowFromEntry(entry)
		if err := writer.Write(&row); err != nil {
			return result, fmt.Errorf("failed to write Parquet row: %w", err)
		}
		result.Written++
		if row.IsSensitive {
			result.Sensitive++
		}
	}
	if err := writer.Close(); err != nil {
		return result, fmt.Errorf("failed to close Parquet writer: %w", err)
	}

	result.Duration = time.Since(start)
	e.logger.Info("Export completed",
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("written", result.Written),
		zap.Int64("sensitive", result.Sensitive),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// ReadFile loads every row of a Parquet export
func ReadFile(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Parquet file: %w", err)
	}
	defer file.Close()

	reader := parquet.NewReader(file)
	defer reader.Close()

	var rows []Row
	for {
		var row Row
		err := reader.Read(&row)
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("failed to read Parquet row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Verify reads an export back and checks it holds the rows the result
// reports as written
func Verify(result *Result) error {
	rows, err := ReadFile(result.Output)
	if err != nil {
		return err
	}
	if int64(len(rows)) != result.Written {
		return fmt.Errorf("export verification failed: %s holds %d rows, expected %d", result.Output, len(rows), result.Written)
	}
	return nil
}
