// Package submissions keeps the append-only CSV log of citizen manifestations
// shown on the dashboard.
package submissions

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raaihank/lgpd-sentinel/internal/logger"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Header is the first row of every log file
var Header = []string{"id", "timestamp", "type", "category", "privacy", "privacy_reason", "text_snippet"}

// Entry is one logged manifestation
type Entry struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Type          string    `json:"type"`
	Category      string    `json:"category"`
	Privacy       string    `json:"privacy"`
	PrivacyReason string    `json:"privacy_reason"`
	// TextSnippet holds the full manifestation text; the column keeps its
	// historical name so existing logs stay readable
	TextSnippet string `json:"text_snippet"`
}

// Record is what a caller submits
type Record struct {
	Text          string
	Type          string
	Category      string
	Privacy       string
	PrivacyReason string
}

// Summary feeds the admin dashboard
type Summary struct {
	TotalCount     int            `json:"total_count"`
	PrivacyCounts  map[string]int `json:"privacy_counts"`
	CategoryCounts map[string]int `json:"category_counts"`
	RecentLogs     []Entry        `json:"recent_logs"`
}

// Log is a CSV file guarded by a mutex. Every write goes through it.
type Log struct {
	path   string
	mu     sync.Mutex
	now    func() time.Time
	logger *logger.Logger
}

// Open prepares the log at path, creating it with a header if needed
func Open(path string, log *logger.Logger) (*Log, error) {
	if log == nil {
		log = logger.NewNop()
	}
	l := &Log{
		path:   path,
		now:    time.Now,
		logger: log.WithComponent("submissions"),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := l.writeHeader(os.O_CREATE | os.O_WRONLY | os.O_EXCL); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	return l, nil
}

// Path returns the location of the CSV file
func (l *Log) Path() string {
	return l.path
}

// Append writes a new row and returns it
func (l *Log) Append(rec Record) (Entry, error) {
	entry := Entry{
		ID:            uuid.NewString(),
		Timestamp:     l.now().UTC().Truncate(time.Second),
		Type:          strings.TrimSpace(rec.Type),
		Category:      strings.TrimSpace(rec.Category),
		Privacy:       strings.TrimSpace(rec.Privacy),
		PrivacyReason: strings.TrimSpace(rec.PrivacyReason),
		TextSnippet:   rec.Text,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(entry.row()); err != nil {
		return Entry{}, fmt.Errorf("failed to write log row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return Entry{}, fmt.Errorf("failed to flush log row: %w", err)
	}

	l.logger.Debug("Submission logged",
		zap.String("id", entry.ID),
		zap.String("category", entry.Category),
		zap.String("privacy", entry.Privacy),
	)
	return entry, nil
}

// List returns every entry, newest first
func (l *Log) List() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	entries, err := ReadEntries(f, l.logger)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, nil
}

// Summary aggregates the log for the dashboard, keeping the n most recent entries
func (l *Log) Summary(n int) (Summary, error) {
	entries, err := l.List()
	if err != nil {
		return Summary{}, err
	}

	recent := entries
	if n >= 0 && len(recent) > n {
		recent = recent[:n]
	}

	return Summary{
		TotalCount:     len(entries),
		PrivacyCounts:  lo.CountValuesBy(entries, func(e Entry) string { return orUnset(e.Privacy) }),
		CategoryCounts: lo.CountValuesBy(entries, func(e Entry) string { return orUnset(e.Category) }),
		RecentLogs:     recent,
	}, nil
}

// Clear truncates the log back to its header
func (l *Log) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.writeHeader(os.O_CREATE | os.O_WRONLY | os.O_TRUNC); err != nil {
		return err
	}
	l.logger.Info("Submission log cleared", zap.String("path", l.path))
	return nil
}

// Reader streams the raw file, for downloads
func (l *Log) Reader() (io.ReadCloser, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func (l *Log) writeHeader(flag int) error {
	f, err := os.OpenFile(l.path, flag, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return fmt.Errorf("failed to write log header: %w", err)
	}
	w.Flush()
	return w.Error()
}

// ReadEntries parses a log stream. Rows that cannot be parsed are skipped.
func ReadEntries(r io.Reader, log *logger.Logger) ([]Entry, error) {
	if log == nil {
		log = logger.NewNop()
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read log header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	if _, ok := index["id"]; !ok {
		return nil, fmt.Errorf("log header has no id column: %v", header)
	}

	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	entries := []Entry{}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn("Skipping unreadable log row", zap.Int("line", line), zap.Error(err))
			continue
		}

		ts, err := time.Parse(time.RFC3339, field(row, "timestamp"))
		if err != nil {
			log.Warn("Skipping log row with bad timestamp", zap.Int("line", line))
			continue
		}

		entries = append(entries, Entry{
			ID:            field(row, "id"),
			Timestamp:     ts,
			Type:          field(row, "type"),
			Category:      field(row, "category"),
			Privacy:       field(row, "privacy"),
			PrivacyReason: field(row, "privacy_reason"),
			TextSnippet:   field(row, "text_snippet"),
		})
	}
	return entries, nil
}

func (e Entry) row() []string {
	return []string{
		e.ID,
		e.Timestamp.Format(time.RFC3339),
		e.Type,
		e.Category,
		e.Privacy,
		e.PrivacyReason,
		e.TextSnippet,
	}
}

func orUnset(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
