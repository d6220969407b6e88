// Package config loads server settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server binary needs to start.
type Config struct {
	Addr           string
	DatabasePath   string
	AuditPath      string
	JWTSecret      string
	AccessTokenTTL time.Duration
	LogLevel       string
	LogFormat      string
	RateLimit      int
	RateWindow     time.Duration
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first if present; real environment
// variables win.
func Load() (*Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{
		Addr:           envOrDefault("VETSYNC_ADDR", ":8080"),
		DatabasePath:   envOrDefault("VETSYNC_DB_PATH", "vetsync.db"),
		AuditPath:      envOrDefault("VETSYNC_AUDIT_PATH", "vetsync-audit.db"),
		JWTSecret:      strings.TrimSpace(os.Getenv("VETSYNC_JWT_SECRET")),
		AccessTokenTTL: durationOrDefault("VETSYNC_TOKEN_TTL", 15*time.Minute),
		LogLevel:       envOrDefault("VETSYNC_LOG_LEVEL", "info"),
		LogFormat:      envOrDefault("VETSYNC_LOG_FORMAT", "text"),
		RateLimit:      intOrDefault("VETSYNC_RATE_LIMIT", 60),
		RateWindow:     durationOrDefault("VETSYNC_RATE_WINDOW", time.Minute),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("VETSYNC_JWT_SECRET is required")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intOrDefault(key string, fallback int) int {
	if i, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && i > 0 {
		return i
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key))); err == nil && d > 0 {
		return d
	}
	return fallback
}
