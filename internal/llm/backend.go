// Package llm talks to the language model providers used for semantic
// classification and privacy analysis. Every call returns a typed result;
// transport, auth and parsing failures never escape as errors.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/raaihank/lgpd-sentinel/internal/categories"
	"github.com/raaihank/lgpd-sentinel/internal/logger"
	"go.uber.org/zap"
)

// Status tells the caller whether a backend result can be used
type Status int

const (
	// StatusOK means the model answered and the answer parsed
	StatusOK Status = iota
	// StatusFailed means the call was attempted and did not produce a usable answer
	StatusFailed
	// StatusUnavailable means no backend was configured for the call
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	case StatusUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ErrNoBackend is attached to StatusUnavailable results
var ErrNoBackend = errors.New("no llm backend configured")

// Classification is a model's category suggestion
type Classification struct {
	CategoryID  string `json:"id"`
	Subcategory string `json:"subcategory"`
}

// ClassifyResult wraps the outcome of a classification call
type ClassifyResult struct {
	Status         Status
	Classification Classification
	Err            error
}

// PrivacyAnalysis is the privacy verdict shape a model returns
type PrivacyAnalysis struct {
	IsSensitive   bool     `json:"is_sensitive"`
	PrivacyStatus string   `json:"privacy_status"`
	Reason        string   `json:"reason"`
	DetectedPII   []string `json:"detected_pii"`
}

// PrivacyResult wraps the outcome of a privacy analysis call
type PrivacyResult struct {
	Status   Status
	Analysis PrivacyAnalysis
	Err      error
}

// Backend is implemented by every model provider
type Backend interface {
	Name() string
	Model() string
	Classify(ctx context.Context, text string, cats []categories.Category) ClassifyResult
	AnalyzePrivacy(ctx context.Context, text, enabledList string) PrivacyResult
}

// Options tune a backend's transport
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logger.Logger
}

const defaultTimeout = 30 * time.Second

func (o Options) withDefaults(baseURL string) Options {
	if o.BaseURL == "" {
		o.BaseURL = baseURL
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{}
	}
	if o.Logger == nil {
		o.Logger = logger.NewNop()
	}
	return o
}

// completeFunc sends one prompt and returns the model's raw text
type completeFunc func(ctx context.Context, prompt string, wantJSON bool) (string, error)

// base implements Backend on top of a provider's completeFunc
type base struct {
	name     string
	model    string
	timeout  time.Duration
	logger   *logger.Logger
	complete completeFunc
}

func newBase(name, model string, opts Options, complete completeFunc) base {
	return base{
		name:     name,
		model:    model,
		timeout:  opts.Timeout,
		logger:   opts.Logger.WithComponent("llm").WithFields(zap.String("provider", name), zap.String("model", model)),
		complete: complete,
	}
}

func (b *base) Name() string  { return b.name }
func (b *base) Model() string { return b.model }

// Classify asks the model to pick a category id and subcategory
func (b *base) Classify(ctx context.Context, text string, cats []categories.Category) ClassifyResult {
	raw, err := b.call(ctx, ClassificationPrompt(text, cats))
	if err != nil {
		return ClassifyResult{Status: StatusFailed, Err: err}
	}

	var out Classification
	if err := DecodeJSON(raw, &out); err != nil {
		b.logger.Warn("Unparseable classification response", zap.Error(err))
		return ClassifyResult{Status: StatusFailed, Err: err}
	}
	return ClassifyResult{Status: StatusOK, Classification: out}
}

// AnalyzePrivacy asks the model for a privacy verdict restricted to enabledList
func (b *base) AnalyzePrivacy(ctx context.Context, text, enabledList string) PrivacyResult {
	raw, err := b.call(ctx, PrivacyPrompt(text, enabledList))
	if err != nil {
		return PrivacyResult{Status: StatusFailed, Err: err}
	}

	var out PrivacyAnalysis
	if err := DecodeJSON(raw, &out); err != nil {
		b.logger.Warn("Unparseable privacy response", zap.Error(err))
		return PrivacyResult{Status: StatusFailed, Err: err}
	}
	return PrivacyResult{Status: StatusOK, Analysis: out}
}

func (b *base) call(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	raw, err := b.complete(ctx, prompt, true)
	if err != nil {
		b.logger.Warn("LLM call failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return "", err
	}
	b.logger.Debug("LLM call completed", zap.Duration("elapsed", time.Since(start)), zap.Int("response_bytes", len(raw)))
	return raw, nil
}
