package llm

import (
	"strings"

	"github.com/raaihank/lgpd-sentinel/internal/config"
	"go.uber.org/zap"
)

// Transport carries per-provider endpoints and shared transport options
type Transport struct {
	Options
	GeminiURL    string
	OpenAIURL    string
	AnthropicURL string
}

// TransportFromConfig builds a Transport from the server configuration
func TransportFromConfig(cfg config.LLMConfig, opts Options) Transport {
	if opts.Timeout <= 0 {
		opts.Timeout = cfg.Timeout
	}
	return Transport{
		Options:      opts,
		GeminiURL:    cfg.GeminiURL,
		OpenAIURL:    cfg.OpenAIURL,
		AnthropicURL: cfg.AnthropicURL,
	}
}

func (t Transport) options(baseURL string) Options {
	o := t.Options
	o.BaseURL = baseURL
	return o
}

// Select picks the backend described by the system configuration. The
// configured provider's key comes from the configuration, then from the
// environment. When the chosen cloud provider has no key at all, a Gemini
// key from the environment is used with the default Gemini model. Select
// returns nil when no backend can be built, which means offline mode.
func Select(cfg config.SystemConfig, creds config.Credentials, t Transport) Backend {
	provider := strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	if provider == "" {
		provider = config.ProviderGemini
	}

	switch provider {
	case config.ProviderOllama:
		url := firstNonEmpty(cfg.OllamaURL, creds.OllamaURL, config.DefaultOllamaURL)
		return NewOllama(url, cfg.LLMModel, t.Options)
	case config.ProviderGemini:
		if key := firstNonEmpty(cfg.GeminiAPIKey, creds.GeminiAPIKey); key != "" {
			return NewGemini(key, cfg.LLMModel, t.options(t.GeminiURL))
		}
	case config.ProviderOpenAI:
		if key := firstNonEmpty(cfg.OpenAIAPIKey, creds.OpenAIAPIKey); key != "" {
			return NewOpenAI(key, cfg.LLMModel, t.options(t.OpenAIURL))
		}
	case config.ProviderAnthropic:
		if key := firstNonEmpty(cfg.AnthropicAPIKey, creds.AnthropicAPIKey); key != "" {
			return NewAnthropic(key, cfg.LLMModel, t.options(t.AnthropicURL))
		}
	default:
		if t.Logger != nil {
			t.Logger.Warn("Unknown llm provider in system config", zap.String("provider", provider))
		}
	}

	if creds.GeminiAPIKey != "" {
		if t.Logger != nil {
			t.Logger.Info("No key for configured provider, falling back to gemini",
				zap.String("configured_provider", provider))
		}
		return NewGemini(creds.GeminiAPIKey, DefaultGeminiModel, t.options(t.GeminiURL))
	}

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
