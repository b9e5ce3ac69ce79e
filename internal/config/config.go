package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Set defaults
	config := GetDefaults()

	// Configure viper
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/lgpd-sentinel/")
	v.AddConfigPath("$HOME/.lgpd-sentinel/")

	// Environment variable overrides, SENTINEL_SERVER_PORT for server.port
	v.SetEnvPrefix("SENTINEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	// Use specific config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	// Read configuration
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error - we'll use defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into config struct
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindEnvKeys registers keys that have no config file entry so AutomaticEnv
// can still see them during Unmarshal.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.port",
		"privacy.patterns_file",
		"llm.timeout",
		"storage.categories_file",
		"storage.system_config_file",
		"storage.submissions_file",
		"cache.enabled",
		"cache.redis_url",
		"security.admin_password",
		"security.rate_limit.enabled",
		"logging.level",
		"logging.format",
	} {
		_ = v.BindEnv(key)
	}
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.LLM.Timeout <= 0 {
		return fmt.Errorf("invalid llm timeout: %s", config.LLM.Timeout)
	}

	if config.Security.RateLimit.Enabled && config.Security.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("invalid rate limit: %d requests per minute", config.Security.RateLimit.RequestsPerMinute)
	}

	if config.Logging.Level != "debug" && config.Logging.Level != "info" && config.Logging.Level != "warn" && config.Logging.Level != "error" {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}

	if config.WebSocket.Enabled && !strings.HasPrefix(config.WebSocket.Path, "/") {
		return fmt.Errorf("invalid websocket path: %q", config.WebSocket.Path)
	}

	return nil
}
