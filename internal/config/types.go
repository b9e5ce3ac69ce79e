package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Privacy   PrivacyConfig   `yaml:"privacy" mapstructure:"privacy"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Security  SecurityConfig  `yaml:"security" mapstructure:"security"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	WebSocket WebSocketConfig `yaml:"websocket" mapstructure:"websocket"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// PrivacyConfig contains PII detection configuration
type PrivacyConfig struct {
	// PatternsFile replaces the built-in pattern catalog when set
	PatternsFile string `yaml:"patterns_file" mapstructure:"patterns_file"`
}

// LLMConfig contains language model transport settings.
// Provider choice and keys live in the system configuration.
type LLMConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	GeminiURL    string        `yaml:"gemini_url" mapstructure:"gemini_url"`
	OpenAIURL    string        `yaml:"openai_url" mapstructure:"openai_url"`
	AnthropicURL string        `yaml:"anthropic_url" mapstructure:"anthropic_url"`
}

// StorageConfig contains file locations
type StorageConfig struct {
	CategoriesFile   string `yaml:"categories_file" mapstructure:"categories_file"`
	SystemConfigFile string `yaml:"system_config_file" mapstructure:"system_config_file"`
	SubmissionsFile  string `yaml:"submissions_file" mapstructure:"submissions_file"`
}

// CacheConfig contains the verdict cache configuration
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	RedisURL  string        `yaml:"redis_url" mapstructure:"redis_url"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
	KeyPrefix string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// SecurityConfig contains admin and rate limiting settings
type SecurityConfig struct {
	AdminPassword string `yaml:"admin_password" mapstructure:"admin_password"`
	RateLimit     struct {
		Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
		RequestsPerMinute int  `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
		Burst             int  `yaml:"burst" mapstructure:"burst"`
	} `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	Path            string        `yaml:"path" mapstructure:"path"`
	MaxConnections  int           `yaml:"max_connections" mapstructure:"max_connections"`
	ReadBufferSize  int           `yaml:"read_buffer_size" mapstructure:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size" mapstructure:"write_buffer_size"`
	PingInterval    time.Duration `yaml:"ping_interval" mapstructure:"ping_interval"`
	PongTimeout     time.Duration `yaml:"pong_timeout" mapstructure:"pong_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	MaxMessageSize  int64         `yaml:"max_message_size" mapstructure:"max_message_size"`
	AllowedOrigins  []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	Events          struct {
		BroadcastSubmissions     bool `yaml:"broadcast_submissions" mapstructure:"broadcast_submissions"`
		BroadcastClassifications bool `yaml:"broadcast_classifications" mapstructure:"broadcast_classifications"`
		BroadcastSystem          bool `yaml:"broadcast_system" mapstructure:"broadcast_system"`
		BroadcastConnections     bool `yaml:"broadcast_connections" mapstructure:"broadcast_connections"`
	} `yaml:"events" mapstructure:"events"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:         8000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
			MaxBodyBytes: 1 << 20,
		},
		LLM: LLMConfig{
			Timeout:      30 * time.Second,
			GeminiURL:    "https://generativelanguage.googleapis.com",
			OpenAIURL:    "https://api.openai.com",
			AnthropicURL: "https://api.anthropic.com",
		},
		Storage: StorageConfig{
			CategoriesFile:   "data/categories.json",
			SystemConfigFile: "data/system_config.json",
			SubmissionsFile:  "data/classifications.csv",
		},
		Cache: CacheConfig{
			Enabled:   false,
			RedisURL:  "redis://localhost:6379/0",
			TTL:       24 * time.Hour,
			KeyPrefix: "lgpd:verdict:",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		WebSocket: WebSocketConfig{
			Enabled:         true,
			Path:            "/ws",
			MaxConnections:  100,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingInterval:    54 * time.Second,
			PongTimeout:     60 * time.Second,
			WriteTimeout:    10 * time.Second,
			MaxMessageSize:  512,
			AllowedOrigins:  []string{"*"},
		},
	}

	cfg.Security.AdminPassword = "admin123"
	cfg.Security.RateLimit.Enabled = true
	cfg.Security.RateLimit.RequestsPerMinute = 60
	cfg.Security.RateLimit.Burst = 10

	cfg.Logging.File.Path = "logs/sentinel.log"

	cfg.WebSocket.Events.BroadcastSubmissions = true
	cfg.WebSocket.Events.BroadcastClassifications = true
	cfg.WebSocket.Events.BroadcastSystem = true
	cfg.WebSocket.Events.BroadcastConnections = true

	return cfg
}
