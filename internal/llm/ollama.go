package llm

import (
	"context"
	"strings"

	"github.com/raaihank/lgpd-sentinel/internal/config"
)

// DefaultOllamaModel is used when no model is configured
const DefaultOllamaModel = "llama3"

// Ollama calls a local Ollama server's /api/generate endpoint
type Ollama struct {
	base
	baseURL string
	opts    Options
}

// NewOllama creates a backend for the server at baseURL
func NewOllama(baseURL, model string, opts Options) *Ollama {
	if model == "" {
		model = DefaultOllamaModel
	}
	if baseURL != "" {
		opts.BaseURL = baseURL
	}
	opts = opts.withDefaults(config.DefaultOllamaURL)

	// accept a full generate URL as well as a server root
	root := strings.TrimSuffix(strings.TrimRight(opts.BaseURL, "/"), "/api/generate")
	o := &Ollama{
		baseURL: root,
		opts:    opts,
	}
	o.base = newBase(config.ProviderOllama, model, opts, o.complete)
	return o
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (o *Ollama) complete(ctx context.Context, prompt string, wantJSON bool) (string, error) {
	req := ollamaRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: false,
	}
	if wantJSON {
		req.Format = "json"
	}

	var resp ollamaResponse
	if err := postJSON(ctx, o.opts.HTTPClient, o.name, o.baseURL+"/api/generate", nil, req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}
