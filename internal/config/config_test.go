package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("VETSYNC_JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "vetsync.db", cfg.DatabasePath)
	assert.Equal(t, "vetsync-audit.db", cfg.AuditPath)
	assert.Equal(t, "test-secret", cfg.JWTSecret)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 60, cfg.RateLimit)
	assert.Equal(t, time.Minute, cfg.RateWindow)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("VETSYNC_JWT_SECRET", "test-secret")
	t.Setenv("VETSYNC_ADDR", ":9090")
	t.Setenv("VETSYNC_DB_PATH", "/data/sync.db")
	t.Setenv("VETSYNC_TOKEN_TTL", "1h")
	t.Setenv("VETSYNC_LOG_LEVEL", "debug")
	t.Setenv("VETSYNC_LOG_FORMAT", "json")
	t.Setenv("VETSYNC_RATE_LIMIT", "120")
	t.Setenv("VETSYNC_RATE_WINDOW", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "/data/sync.db", cfg.DatabasePath)
	assert.Equal(t, time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 120, cfg.RateLimit)
	assert.Equal(t, 30*time.Second, cfg.RateWindow)
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("VETSYNC_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VETSYNC_JWT_SECRET")
}

func TestLoad_IgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("VETSYNC_JWT_SECRET", "test-secret")
	t.Setenv("VETSYNC_RATE_LIMIT", "not-a-number")
	t.Setenv("VETSYNC_TOKEN_TTL", "-5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.RateLimit, "invalid values fall back to defaults")
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
}
