package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServerPort  string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string
	JWTExpiry   time.Duration

	AppName      string
	CloudAPIURL  string
	CloudPingURL string
	SyncToken    string
	SyncInterval time.Duration
	EnableSync   bool

	LogLevel  slog.Level
	LogFormat string
}

// SyncIntervalMinutes is the interval as reported by the status endpoint.
func (c *Config) SyncIntervalMinutes() int {
	return int(c.SyncInterval / time.Minute)
}

func LoadConfig() (*Config, error) {
	expiryStr := getEnv("JWT_EXPIRY", "24h")
	expiry, err := time.ParseDuration(expiryStr)
	if err != nil {
		return nil, errors.New("invalid JWT_EXPIRY format")
	}

	minutes, err := strconv.Atoi(getEnv("SYNC_INTERVAL_MINUTES", "5"))
	if err != nil || minutes <= 0 {
		return nil, errors.New("SYNC_INTERVAL_MINUTES must be a positive integer")
	}

	enableSync, err := strconv.ParseBool(getEnv("ENABLE_SYNC", "false"))
	if err != nil {
		return nil, errors.New("invalid ENABLE_SYNC value")
	}

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	format := strings.ToLower(getEnv("LOG_FORMAT", "json"))
	if format != "json" && format != "text" {
		return nil, errors.New("LOG_FORMAT must be json or text")
	}

	cfg := &Config{
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		JWTExpiry:    expiry,
		AppName:      getEnv("APP_NAME", "School Management System"),
		CloudAPIURL:  os.Getenv("CLOUD_API_URL"),
		CloudPingURL: os.Getenv("CLOUD_PING_URL"),
		SyncToken:    os.Getenv("SYNC_SECRET_TOKEN"),
		SyncInterval: time.Duration(minutes) * time.Minute,
		EnableSync:   enableSync,
		LogLevel:     level,
		LogFormat:    format,
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.EnableSync && cfg.CloudAPIURL == "" {
		return nil, errors.New("CLOUD_API_URL is required when ENABLE_SYNC is true")
	}
	if cfg.EnableSync && cfg.CloudPingURL == "" {
		cfg.CloudPingURL = strings.TrimSuffix(cfg.CloudAPIURL, "/") + "/api/v1/sync/health"
	}

	return cfg, nil
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, errors.New("invalid LOG_LEVEL value")
	}
	return level, nil
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
