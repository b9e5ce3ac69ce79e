package llm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/raaihank/lgpd-sentinel/internal/config"
)

// DefaultGeminiModel is used when no model is configured
const DefaultGeminiModel = "gemini-2.0-flash"

const defaultGeminiURL = "https://generativelanguage.googleapis.com"

// Gemini calls the Google Generative Language generateContent endpoint
type Gemini struct {
	base
	apiKey  string
	baseURL string
	opts    Options
}

// NewGemini creates a Gemini backend
func NewGemini(apiKey, model string, opts Options) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	opts = opts.withDefaults(defaultGeminiURL)
	g := &Gemini{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		opts:    opts,
	}
	g.base = newBase(config.ProviderGemini, model, opts, g.complete)
	return g
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature      float64 `json:"temperature"`
		ResponseMimeType string  `json:"responseMimeType,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

func (g *Gemini) complete(ctx context.Context, prompt string, wantJSON bool) (string, error) {
	var req geminiRequest
	req.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}
	if wantJSON {
		req.GenerationConfig.ResponseMimeType = "application/json"
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
	headers := map[string]string{"x-goog-api-key": g.apiKey}

	var resp geminiResponse
	if err := postJSON(ctx, g.opts.HTTPClient, g.name, endpoint, headers, req, &resp); err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 {
		return "", errors.New("gemini: no candidates in response")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
