package export

import (
	"strings"
	"time"

	"github.com/raaihank/lgpd-sentinel/internal/privacy"
	"github.com/raaihank/lgpd-sentinel/internal/submissions"
)

// Row is one submission in the columnar export
type Row struct {
	ID            string `parquet:"id" json:"id"`
	Timestamp     string `parquet:"timestamp" json:"timestamp"`
	TimestampMS   int64  `parquet:"timestamp_ms" json:"timestamp_ms"`
	Type          string `parquet:"type" json:"type"`
	Category      string `parquet:"category" json:"category"`
	Privacy       string `parquet:"privacy" json:"privacy"`
	IsSensitive   bool   `parquet:"is_sensitive" json:"is_sensitive"`
	PrivacyReason string `parquet:"privacy_reason" json:"privacy_reason"`
	TextSnippet   string `parquet:"text_snippet" json:"text_snippet"`
}

// Result describes one export run
type Result struct {
	Input        string        `json:"input"`
	Output       string        `json:"output"`
	TotalRecords int64         `json:"total_records"`
	Written      int64         `json:"written"`
	Sensitive    int64         `json:"sensitive"`
	Duration     time.Duration `json:"duration"`
}

// Config contains export configuration
type Config struct {
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
}

// RowFromEntry converts a log entry
func RowFromEntry(e submissions.Entry) Row {
	return Row{
		ID:            e.ID,
		Timestamp:     e.Timestamp.UTC().Format(time.RFC3339),
		TimestampMS:   e.Timestamp.UnixMilli(),
		Type:          e.Type,
		Category:      e.Category,
		Privacy:       e.Privacy,
		IsSensitive:   strings.EqualFold(e.Privacy, privacy.StatusSigiloso),
		PrivacyReason: e.PrivacyReason,
		TextSnippet:   e.TextSnippet,
	}
}
