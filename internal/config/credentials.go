package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Credentials are provider secrets supplied through the environment
type Credentials struct {
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	OllamaURL       string `envconfig:"OLLAMA_URL"`
}

// LoadCredentials reads provider credentials from the environment
func LoadCredentials() (Credentials, error) {
	var creds Credentials
	if err := envconfig.Process("", &creds); err != nil {
		return Credentials{}, fmt.Errorf("failed to read credentials: %w", err)
	}
	return creds, nil
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are skipped; variables already set are not overwritten.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}
