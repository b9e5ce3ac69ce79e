package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// LLM providers
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// DefaultOllamaURL is used when neither the system configuration nor the
// environment names a local model server
const DefaultOllamaURL = "http://localhost:11434"

// SystemConfig is the admin-editable configuration document. It is read
// fresh for every classification so edits apply to the next request.
type SystemConfig struct {
	EnabledPIITypes []string `json:"enabled_pii_types" mapstructure:"enabled_pii_types"`
	LLMProvider     string   `json:"llm_provider" mapstructure:"llm_provider"`
	LLMModel        string   `json:"llm_model" mapstructure:"llm_model"`
	GeminiAPIKey    string   `json:"gemini_api_key" mapstructure:"gemini_api_key"`
	OpenAIAPIKey    string   `json:"openai_api_key" mapstructure:"openai_api_key"`
	AnthropicAPIKey string   `json:"anthropic_api_key" mapstructure:"anthropic_api_key"`
	OllamaURL       string   `json:"ollama_url" mapstructure:"ollama_url"`
}

// DefaultSystemConfig returns the configuration used when the file is
// missing or unreadable
func DefaultSystemConfig() SystemConfig {
	return SystemConfig{
		EnabledPIITypes: []string{},
		LLMProvider:     ProviderGemini,
		OllamaURL:       DefaultOllamaURL,
	}
}

// Masked returns a copy safe to show in the admin UI
func (c SystemConfig) Masked() SystemConfig {
	c.GeminiAPIKey = MaskSecret(c.GeminiAPIKey)
	c.OpenAIAPIKey = MaskSecret(c.OpenAIAPIKey)
	c.AnthropicAPIKey = MaskSecret(c.AnthropicAPIKey)
	return c
}

// SystemConfigPatch is a partial update. Nil fields are left unchanged and
// masked keys echoed back by the UI are ignored.
type SystemConfigPatch struct {
	EnabledPIITypes *[]string `json:"enabled_pii_types"`
	LLMProvider     *string   `json:"llm_provider" validate:"omitnil,oneof=gemini openai anthropic ollama"`
	LLMModel        *string   `json:"llm_model"`
	GeminiAPIKey    *string   `json:"gemini_api_key"`
	OpenAIAPIKey    *string   `json:"openai_api_key"`
	AnthropicAPIKey *string   `json:"anthropic_api_key"`
	OllamaURL       *string   `json:"ollama_url"`
}

// Apply returns c with the patch applied
func (c SystemConfig) Apply(p SystemConfigPatch) SystemConfig {
	if p.EnabledPIITypes != nil {
		c.EnabledPIITypes = append([]string{}, (*p.EnabledPIITypes)...)
	}
	if p.LLMProvider != nil {
		c.LLMProvider = *p.LLMProvider
	}
	if p.LLMModel != nil {
		c.LLMModel = *p.LLMModel
	}
	applySecret(&c.GeminiAPIKey, p.GeminiAPIKey)
	applySecret(&c.OpenAIAPIKey, p.OpenAIAPIKey)
	applySecret(&c.AnthropicAPIKey, p.AnthropicAPIKey)
	if p.OllamaURL != nil {
		c.OllamaURL = *p.OllamaURL
	}
	return c
}

func applySecret(dst *string, v *string) {
	if v == nil || strings.Contains(*v, maskFill) {
		return
	}
	*dst = *v
}

const maskFill = "****"

// MaskSecret keeps the first and last four characters of long secrets
func MaskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return maskFill
	default:
		return s[:4] + maskFill + s[len(s)-4:]
	}
}

// SystemStore reads and writes the system configuration file
type SystemStore struct {
	path string
	mu   sync.Mutex
}

// NewSystemStore creates a store backed by the JSON file at path
func NewSystemStore(path string) *SystemStore {
	return &SystemStore{path: path}
}

// Path returns the backing file location
func (s *SystemStore) Path() string {
	return s.path
}

// Load reads the current configuration. A missing file yields defaults and
// no error; a malformed file yields defaults and the parse error.
func (s *SystemStore) Load() (SystemConfig, error) {
	cfg := DefaultSystemConfig()

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return cfg, nil
	}

	v := newSystemViper(s.path)
	if err := v.ReadInConfig(); err != nil {
		return DefaultSystemConfig(), fmt.Errorf("failed to read system config: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return DefaultSystemConfig(), fmt.Errorf("failed to decode system config: %w", err)
	}

	if cfg.LLMProvider == "" {
		cfg.LLMProvider = ProviderGemini
	}
	if cfg.OllamaURL == "" {
		cfg.OllamaURL = DefaultOllamaURL
	}
	if cfg.EnabledPIITypes == nil {
		cfg.EnabledPIITypes = []string{}
	}

	return cfg, nil
}

// Save replaces the configuration file with cfg
func (s *SystemStore) Save(cfg SystemConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	v := newSystemViper(s.path)
	v.Set("enabled_pii_types", cfg.EnabledPIITypes)
	v.Set("llm_provider", cfg.LLMProvider)
	v.Set("llm_model", cfg.LLMModel)
	v.Set("gemini_api_key", cfg.GeminiAPIKey)
	v.Set("openai_api_key", cfg.OpenAIAPIKey)
	v.Set("anthropic_api_key", cfg.AnthropicAPIKey)
	v.Set("ollama_url", cfg.OllamaURL)

	// Write next to the target and rename so readers never see a partial file
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".system-config-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp config: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := v.WriteConfigAs(tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write system config: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace system config: %w", err)
	}
	return nil
}

// Update loads, patches and saves the configuration in one step. A
// malformed file is treated like a missing one so an admin can repair it
// by saving.
func (s *SystemStore) Update(p SystemConfigPatch) (SystemConfig, error) {
	current, _ := s.Load()
	next := current.Apply(p)
	if err := s.Save(next); err != nil {
		return SystemConfig{}, err
	}
	return next, nil
}

// Watch calls onChange whenever the file is written by anyone, until ctx
// is done. The parent directory is watched so editors that replace the
// file are also seen.
func (s *SystemStore) Watch(ctx context.Context, onChange func(SystemConfig, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				onChange(s.Load())
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				onChange(DefaultSystemConfig(), err)
			}
		}
	}()

	return nil
}

func newSystemViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	return v
}
