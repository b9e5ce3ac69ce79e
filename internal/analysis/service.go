package analysis

import (
	"context"
	"fmt"

	"github.com/raaihank/lgpd-sentinel/internal/config"
	"github.com/raaihank/lgpd-sentinel/internal/logger"
	"github.com/raaihank/lgpd-sentinel/internal/privacy"
	"go.uber.org/zap"
)

// SnapshotSource supplies the system configuration for one call
type SnapshotSource interface {
	Load() (config.SystemConfig, error)
}

// Service is the no-throw entry point used by the HTTP layer and tools. It
// reads a fresh configuration snapshot for every call.
type Service struct {
	analyzer *Analyzer
	source   SnapshotSource
	logger   *logger.Logger
}

// NewService creates a new analysis service
func NewService(analyzer *Analyzer, source SnapshotSource, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		analyzer: analyzer,
		source:   source,
		logger:   log.WithComponent("analysis-service"),
	}
}

// Snapshot loads the current system configuration, using defaults on error
func (s *Service) Snapshot() config.SystemConfig {
	if s.source == nil {
		return config.DefaultSystemConfig()
	}
	snap, err := s.source.Load()
	if err != nil {
		s.logger.Warn("System config unreadable, using defaults", zap.Error(err))
	}
	return snap
}

// AnalyzePrivacy returns the privacy verdict for text. It never fails.
func (s *Service) AnalyzePrivacy(ctx context.Context, text string, enabled []string) (v privacy.Verdict) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Privacy analysis panicked", zap.String("panic", fmt.Sprint(r)))
			v = privacy.PublicVerdict()
		}
	}()

	return s.analyzer.AnalyzePrivacy(ctx, text, enabled, s.Snapshot())
}

// ClassifyAndFilter returns the category and privacy verdict for text. It
// never fails; without any signal the unidentified marker comes back.
func (s *Service) ClassifyAndFilter(ctx context.Context, text string, enabled []string) (r ClassificationResult) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("Classification panicked", zap.String("panic", fmt.Sprint(rec)))
			r = UnidentifiedResult()
		}
	}()

	return s.analyzer.ClassifyAndFilter(ctx, text, enabled, s.Snapshot())
}

// Library exposes the PII catalog used by the detector
func (s *Service) Library() *privacy.Library {
	return s.analyzer.detector.Library()
}
