// Package analysis combines offline detection, an optional model backend and
// the macro category cascade into final privacy and classification results.
package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/raaihank/lgpd-sentinel/internal/categories"
	"github.com/raaihank/lgpd-sentinel/internal/config"
	"github.com/raaihank/lgpd-sentinel/internal/llm"
	"github.com/raaihank/lgpd-sentinel/internal/logger"
	"github.com/raaihank/lgpd-sentinel/internal/privacy"
	"go.uber.org/zap"
)

// BackendFactory builds the backend for a configuration snapshot. It returns
// nil when no backend is available.
type BackendFactory func(cfg config.SystemConfig) llm.Backend

// VerdictCache stores successful model verdicts. Implementations must treat
// their own failures as misses.
type VerdictCache interface {
	Get(ctx context.Context, key string) (privacy.Verdict, bool)
	Set(ctx context.Context, key string, v privacy.Verdict)
}

// ClassificationResult is a category decision with the privacy verdict merged in
type ClassificationResult struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	Subcategories       []string `json:"subcategories"`
	SelectedSubcategory string   `json:"selected_subcategory"`
	CategorySource      string   `json:"category_source"`
	privacy.Verdict
}

// Category sources
const (
	CategoryFromLLM     = "llm"
	CategoryFromKeyword = "keyword"
	CategoryUnknown     = "unknown"
)

// Analyzer is the orchestrator. It holds no per-call state.
type Analyzer struct {
	detector *privacy.Detector
	catalog  *categories.Catalog
	backends BackendFactory
	cache    VerdictCache
	logger   *logger.Logger
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithCache enables verdict caching
func WithCache(c VerdictCache) Option {
	return func(a *Analyzer) { a.cache = c }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// NewAnalyzer creates an orchestrator. A nil factory means offline only.
func NewAnalyzer(detector *privacy.Detector, catalog *categories.Catalog, backends BackendFactory, opts ...Option) *Analyzer {
	a := &Analyzer{
		detector: detector,
		catalog:  catalog,
		backends: backends,
		logger:   logger.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.WithComponent("analysis")
	return a
}

// Offline returns a factory that never yields a backend
func Offline() BackendFactory {
	return func(config.SystemConfig) llm.Backend { return nil }
}

// EnvBackends selects backends with credentials read from the environment at call time
func EnvBackends(t llm.Transport) BackendFactory {
	return func(cfg config.SystemConfig) llm.Backend {
		creds, err := config.LoadCredentials()
		if err != nil && t.Logger != nil {
			t.Logger.Warn("Failed to read credentials", zap.Error(err))
		}
		return llm.Select(cfg, creds, t)
	}
}

// AnalyzePrivacy produces the privacy verdict for text. A nil enabled list
// means "use the snapshot's list"; an empty result enables every type.
func (a *Analyzer) AnalyzePrivacy(ctx context.Context, text string, enabled []string, snap config.SystemConfig) privacy.Verdict {
	return a.analyzePrivacy(ctx, text, a.resolveEnabled(enabled, snap), a.backend(snap))
}

// ClassifyAndFilter picks a category for text and attaches its privacy verdict
func (a *Analyzer) ClassifyAndFilter(ctx context.Context, text string, enabled []string, snap config.SystemConfig) ClassificationResult {
	backend := a.backend(snap)

	result := a.classify(ctx, text, backend)
	result.Verdict = a.analyzePrivacy(ctx, text, a.resolveEnabled(enabled, snap), backend)
	return result
}

func (a *Analyzer) backend(snap config.SystemConfig) llm.Backend {
	if a.backends == nil {
		return nil
	}
	return a.backends(snap)
}

func (a *Analyzer) resolveEnabled(enabled []string, snap config.SystemConfig) []string {
	if enabled != nil {
		return enabled
	}
	return snap.EnabledPIITypes
}

func (a *Analyzer) analyzePrivacy(ctx context.Context, text string, enabled []string, backend llm.Backend) privacy.Verdict {
	log := a.logger.With(logger.TextFields(text)...)

	offline := a.detector.Detect(text, enabled)

	if backend == nil {
		log.Debug("No llm backend, using offline detection", zap.Int("detected", len(offline)))
		return privacy.OfflineVerdict(offline)
	}

	enabledList := llm.EnabledAll
	if len(offline) > 0 {
		enabledList = strings.Join(offline, ", ")
	}

	key := VerdictKey(backend.Name(), backend.Model(), enabledList, text)
	if a.cache != nil {
		if v, ok := a.cache.Get(ctx, key); ok {
			v.Source = privacy.SourceCache
			return a.restrict(v, enabled)
		}
	}

	res := backend.AnalyzePrivacy(ctx, text, enabledList)
	switch res.Status {
	case llm.StatusOK:
		v := fromModel(res.Analysis)
		if a.cache != nil {
			a.cache.Set(ctx, key, v)
		}
		return a.restrict(v, enabled)
	default:
		log.Info("LLM privacy analysis unusable, falling back to offline detection",
			zap.String("provider", backend.Name()),
			zap.Stringer("status", res.Status),
			zap.Error(res.Err),
		)
		return privacy.OfflineVerdict(offline)
	}
}

// fromModel normalizes a model answer
func fromModel(m llm.PrivacyAnalysis) privacy.Verdict {
	claimed := m.IsSensitive || strings.EqualFold(strings.TrimSpace(m.PrivacyStatus), privacy.StatusSigiloso)
	return privacy.NewVerdict(claimed, m.Reason, m.DetectedPII, privacy.SourceLLM)
}

// restrict drops labels of catalog types outside the enabled set
func (a *Analyzer) restrict(v privacy.Verdict, enabled []string) privacy.Verdict {
	lib := a.detector.Library()
	all := lib.Labels(lib.IDs())
	allowed := all
	if len(enabled) > 0 {
		allowed = lib.Labels(enabled)
	}
	return v.Restrict(all, allowed)
}

func (a *Analyzer) classify(ctx context.Context, text string, backend llm.Backend) ClassificationResult {
	if backend != nil && a.catalog.Len() > 0 {
		res := backend.Classify(ctx, text, a.catalog.All())
		if res.Status == llm.StatusOK {
			if cat, ok := a.catalog.Get(res.Classification.CategoryID); ok {
				return newResult(cat, categories.ResolveSubcategory(cat, res.Classification.Subcategory), CategoryFromLLM)
			}
			a.logger.Info("LLM suggested an unknown category", zap.String("category_id", res.Classification.CategoryID))
		} else {
			a.logger.Info("LLM classification unusable, trying keywords",
				zap.String("provider", backend.Name()),
				zap.Stringer("status", res.Status),
				zap.Error(res.Err),
			)
		}
	}

	if cat, ok := a.catalog.MatchKeywords(text); ok {
		return newResult(cat, categories.ResolveSubcategory(cat, ""), CategoryFromKeyword)
	}

	unknown := categories.Unknown()
	return newResult(unknown, unknown.Subcategories[0], CategoryUnknown)
}

func newResult(cat categories.Category, sub, source string) ClassificationResult {
	return ClassificationResult{
		ID:                  cat.ID,
		Name:                cat.Name,
		Description:         cat.Description,
		Subcategories:       append([]string(nil), cat.Subcategories...),
		SelectedSubcategory: sub,
		CategorySource:      source,
	}
}

// UnidentifiedResult is the no-signal classification
func UnidentifiedResult() ClassificationResult {
	unknown := categories.Unknown()
	r := newResult(unknown, unknown.Subcategories[0], CategoryUnknown)
	r.Verdict = privacy.PublicVerdict()
	return r
}

// VerdictKey identifies a model verdict for caching
func VerdictKey(provider, model, enabledList, text string) string {
	h := sha256.New()
	for _, part := range []string{provider, model, enabledList, text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
