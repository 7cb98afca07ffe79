package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Vantage-Labs/vantage/core/pkg/config"
)

// TestLoad_Defaults verifies that Load() returns sensible defaults
// when no environment variables are set.
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("VANTAGE_DB", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("INGEST_RPS", "")
	t.Setenv("INGEST_BURST", "")

	cfg := config.Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "vantage.db", cfg.SQLitePath)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, "signposts.yaml", cfg.SignpostManifest)
	assert.Equal(t, 5.0, cfg.IngestRPS)
	assert.Equal(t, 10, cfg.IngestBurst)
}

// TestLoad_Overrides verifies that environment variables correctly
// override default values.
func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DATABASE_URL", "postgres://production:5432/vantage")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SIGNPOST_MANIFEST", "/etc/vantage/signposts.yaml")
	t.Setenv("INGEST_RPS", "2.5")
	t.Setenv("INGEST_BURST", "4")

	cfg := config.Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "postgres://production:5432/vantage", cfg.DatabaseURL)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, "/etc/vantage/signposts.yaml", cfg.SignpostManifest)
	assert.Equal(t, 2.5, cfg.IngestRPS)
	assert.Equal(t, 4, cfg.IngestBurst)
}

// TestLoad_BadNumbersFallBack verifies malformed numeric values fall
// back to defaults instead of failing the boot.
func TestLoad_BadNumbersFallBack(t *testing.T) {
	t.Setenv("INGEST_RPS", "fast")
	t.Setenv("INGEST_BURST", "lots")
	t.Setenv("REDIS_DB", "primary")

	cfg := config.Load()

	assert.Equal(t, 5.0, cfg.IngestRPS)
	assert.Equal(t, 10, cfg.IngestBurst)
	assert.Equal(t, 0, cfg.RedisDB)
}
