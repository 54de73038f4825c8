// Package config provides application configuration loaded from the
// environment, with optional .env file support for development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the full engine and server configuration.
type Config struct {
	// HTTPAddr is the listen address of the admin HTTP server.
	HTTPAddr string
	// AdminToken enables bearer auth on the admin surface when set.
	AdminToken string

	// DBPath is the sqlite database location.
	DBPath string
	// RedisAddr enables the cache tier when set (host:port).
	RedisAddr string

	// SessionTTL is the wall-clock session timeout.
	SessionTTL time.Duration
	// WorkingSetSize bounds the in-process session tier.
	WorkingSetSize int
	// SweepInterval is the cadence of the expiry sweep.
	SweepInterval time.Duration

	// Provider selects the extraction backend: "anthropic", "openai" or
	// "keyword" for deterministic offline operation.
	Provider string
	// AnthropicAPIKey overrides the SDK's own env lookup when set.
	AnthropicAPIKey string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// LogFormat is json or text.
	LogFormat string
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:        getEnv("DIALOG_HTTP_ADDR", ":8080"),
		AdminToken:      getEnv("DIALOG_ADMIN_TOKEN", ""),
		DBPath:          getEnv("DIALOG_DB_PATH", "./data/dialog.db"),
		RedisAddr:       getEnv("DIALOG_REDIS_ADDR", ""),
		SessionTTL:      getEnvDuration("DIALOG_SESSION_TTL", 2*time.Hour),
		WorkingSetSize:  getEnvInt("DIALOG_WORKING_SET_SIZE", 100),
		SweepInterval:   getEnvDuration("DIALOG_SWEEP_INTERVAL", 5*time.Minute),
		Provider:        getEnv("DIALOG_PROVIDER", "keyword"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		LogLevel:        getEnv("DIALOG_LOG_LEVEL", "info"),
		LogFormat:       getEnv("DIALOG_LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("DIALOG_HTTP_ADDR cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DIALOG_DB_PATH cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("DIALOG_SESSION_TTL must be positive")
	}
	if c.WorkingSetSize <= 0 {
		return fmt.Errorf("DIALOG_WORKING_SET_SIZE must be > 0")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("DIALOG_SWEEP_INTERVAL must be positive")
	}
	switch c.Provider {
	case "anthropic", "openai", "keyword":
	default:
		return fmt.Errorf("DIALOG_PROVIDER must be anthropic, openai or keyword, got %q", c.Provider)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
