package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the application. DATABASE_URL selects
// the storage driver: when set the remote Postgres driver is used, otherwise
// lists live in the local SQLite store at LocalStorePath.
type Config struct {
	DatabaseURL    string
	LocalStorePath string
	WebhookBaseURL string
	TelegramToken  string
	TelegramChatID int64
	LogLevel       string
	Port           string
	PrometheusPort string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		LocalStorePath: getEnvOrDefault("LOCAL_STORE_PATH", "data/listaszap.db"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		Port:           getEnvOrDefault("PORT", "8080"),
		PrometheusPort: getEnvOrDefault("PROMETHEUS_PORT", "9090"),
	}

	if cfg.WebhookBaseURL = os.Getenv("WEBHOOK_BASE_URL"); cfg.WebhookBaseURL == "" {
		return nil, fmt.Errorf("WEBHOOK_BASE_URL environment variable is required")
	}

	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID must be numeric: %w", err)
		}
		cfg.TelegramChatID = id
	}

	return cfg, nil
}

// UseRemoteStore reports whether the Postgres driver should be used.
func (c *Config) UseRemoteStore() bool {
	return c.DatabaseURL != ""
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
