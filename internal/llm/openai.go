package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/raaihank/lgpd-sentinel/internal/config"
)

// DefaultOpenAIModel is used when no model is configured
const DefaultOpenAIModel = "gpt-4o"

const defaultOpenAIURL = "https://api.openai.com"

// OpenAI calls the chat completions API. Any OpenAI-compatible server works
// through Options.BaseURL.
type OpenAI struct {
	base
	apiKey  string
	baseURL string
	opts    Options
}

// NewOpenAI creates an OpenAI backend
func NewOpenAI(apiKey, model string, opts Options) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	opts = opts.withDefaults(defaultOpenAIURL)
	o := &OpenAI{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		opts:    opts,
	}
	o.base = newBase(config.ProviderOpenAI, model, opts, o.complete)
	return o
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

func (o *OpenAI) complete(ctx context.Context, prompt string, wantJSON bool) (string, error) {
	req := openAIRequest{
		Model:    o.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}
	if wantJSON {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	headers := map[string]string{"Authorization": "Bearer " + o.apiKey}

	var resp openAIResponse
	if err := postJSON(ctx, o.opts.HTTPClient, o.name, o.baseURL+"/v1/chat/completions", headers, req, &resp); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
