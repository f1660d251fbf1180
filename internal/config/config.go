package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"chatrelay/internal/llm"
)

// Config holds all configuration for the application.
type Config struct {
	ChatEndpoint    string
	ChatAPIKey      string
	ChatModel       string
	ChatTemperature float64
	ChatMaxTokens   int
	ChatTimeout     time.Duration
	ChatMaxRetries  int
	DBPath          string
	APIPort         string
	LogLevel        slog.Level
	LogFormat       string
}

// Load reads configuration from environment variables and returns a Config
// struct. It applies defaults for optional fields and validates required
// ones. If a .env file exists in the current directory or a parent up to
// the project root, it is loaded first; variables already set in the
// environment take precedence over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Walk up a few levels looking for a .env next to the project root.
	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		ChatEndpoint: getEnv("CHAT_ENDPOINT", ""),
		ChatAPIKey:   getEnv(llm.APIKeyEnv, ""),
		ChatModel:    getEnv("CHAT_MODEL", llm.DefaultModel),
		DBPath:       getEnv("DB_PATH", "./data/chatrelay.db"),
		APIPort:      getEnv("API_PORT", "9000"),
		LogFormat:    getEnv("LOG_FORMAT", "text"),
	}

	if cfg.ChatEndpoint == "" {
		return nil, fmt.Errorf("CHAT_ENDPOINT is required (full URL of the chat-completions endpoint)")
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be \"text\" or \"json\", got %q", cfg.LogFormat)
	}

	temperature, err := getEnvFloat("CHAT_TEMPERATURE", llm.DefaultTemperature)
	if err != nil {
		return nil, err
	}
	cfg.ChatTemperature = temperature

	maxTokens, err := getEnvInt("CHAT_MAX_TOKENS", llm.DefaultMaxTokens)
	if err != nil {
		return nil, err
	}
	if maxTokens <= 0 {
		return nil, fmt.Errorf("CHAT_MAX_TOKENS must be greater than 0")
	}
	cfg.ChatMaxTokens = maxTokens

	timeoutSeconds, err := getEnvInt("CHAT_TIMEOUT_SECONDS", int(llm.DefaultTimeout/time.Second))
	if err != nil {
		return nil, err
	}
	if timeoutSeconds <= 0 {
		return nil, fmt.Errorf("CHAT_TIMEOUT_SECONDS must be greater than 0")
	}
	cfg.ChatTimeout = time.Duration(timeoutSeconds) * time.Second

	maxRetries, err := getEnvInt("CHAT_MAX_RETRIES", llm.DefaultMaxRetries)
	if err != nil {
		return nil, err
	}
	if maxRetries < 1 {
		return nil, fmt.Errorf("CHAT_MAX_RETRIES must be at least 1")
	}
	cfg.ChatMaxRetries = maxRetries

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	// Create the data directory for the SQLite file if needed.
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// ChatConfig builds the per-call client configuration from the loaded
// settings.
func (c *Config) ChatConfig() llm.Config {
	return llm.Config{
		Endpoint:    c.ChatEndpoint,
		APIKey:      c.ChatAPIKey,
		Model:       c.ChatModel,
		Temperature: c.ChatTemperature,
		MaxTokens:   c.ChatMaxTokens,
		Timeout:     c.ChatTimeout,
		MaxRetries:  c.ChatMaxRetries,
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return parsed, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return parsed, nil
}

func parseLogLevel(value string) (slog.Level, error) {
	switch value {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", value)
}
