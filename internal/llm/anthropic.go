package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/raaihank/lgpd-sentinel/internal/config"
)

// DefaultAnthropicModel is used when no model is configured
const DefaultAnthropicModel = "claude-3-5-sonnet-20240620"

const (
	defaultAnthropicURL = "https://api.anthropic.com"
	anthropicVersion    = "2023-06-01"
	anthropicMaxTokens  = 1000
)

// Anthropic calls the Messages API
type Anthropic struct {
	base
	apiKey  string
	baseURL string
	opts    Options
}

// NewAnthropic creates an Anthropic backend
func NewAnthropic(apiKey, model string, opts Options) *Anthropic {
	if model == "" {
		model = DefaultAnthropicModel
	}
	opts = opts.withDefaults(defaultAnthropicURL)
	a := &Anthropic{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		opts:    opts,
	}
	a.base = newBase(config.ProviderAnthropic, model, opts, a.complete)
	return a
}

type anthropicRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (a *Anthropic) complete(ctx context.Context, prompt string, wantJSON bool) (string, error) {
	// no native JSON mode; DecodeJSON trims whatever surrounds the object
	if wantJSON && !strings.HasSuffix(prompt, "Return ONLY JSON.") {
		prompt += "\nReturn ONLY JSON."
	}
	req := anthropicRequest{
		Model:     a.model,
		MaxTokens: anthropicMaxTokens,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}

	var resp anthropicResponse
	if err := postJSON(ctx, a.opts.HTTPClient, a.name, a.baseURL+"/v1/messages", headers, req, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("anthropic: no text content in response")
	}
	return sb.String(), nil
}
