package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	APIBaseURL     string
	WSURL          string
	CacheFile      string
	CacheSecret    string
	ResetHour      int
	CacheTTL       time.Duration
	ReconnectDelay time.Duration
}

func Load(cliMode bool) (*Config, error) {
	resetHour, err := strconv.Atoi(getEnv("RESET_HOUR", "3"))
	if err != nil {
		return nil, fmt.Errorf("RESET_HOUR: %w", err)
	}

	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("CACHE_TTL: %w", err)
	}

	reconnectDelay, err := time.ParseDuration(getEnv("RECONNECT_DELAY", "5s"))
	if err != nil {
		return nil, fmt.Errorf("RECONNECT_DELAY: %w", err)
	}

	cfg := &Config{
		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:8080"),
		WSURL:          getEnv("WS_URL", "ws://localhost:8080/ws"),
		CacheFile:      getEnv("HOMEFIT_DB", "homefit.db"),
		CacheSecret:    os.Getenv("CACHE_SECRET"),
		ResetHour:      resetHour,
		CacheTTL:       cacheTTL,
		ReconnectDelay: reconnectDelay,
	}

	if err := cfg.Validate(cliMode); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate(cliMode bool) error {
	if c.CacheSecret == "" && !cliMode {
		return fmt.Errorf("CACHE_SECRET is required")
	}

	if c.ResetHour < 0 || c.ResetHour > 23 {
		return fmt.Errorf("RESET_HOUR must be between 0 and 23")
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be greater than 0")
	}

	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("RECONNECT_DELAY must be greater than 0")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
