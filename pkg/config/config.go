// Package config loads process configuration from environment
// variables, 12-factor style.
package config

import (
	"os"
	"strconv"
)

// Config holds engine configuration.
type Config struct {
	Port     string
	LogLevel string

	// DatabaseURL selects the Postgres store when set; otherwise the
	// engine runs on the SQLite file at SQLitePath.
	DatabaseURL string
	SQLitePath  string

	// RedisAddr enables the cache-invalidation publisher when set.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SignpostManifest  string
	CredibilityPolicy string // empty runs the built-in default policy

	IngestRPS   float64
	IngestBurst int
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		Port:              getenv("PORT", "8080"),
		LogLevel:          getenv("LOG_LEVEL", "INFO"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		SQLitePath:        getenv("VANTAGE_DB", "vantage.db"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		SignpostManifest:  getenv("SIGNPOST_MANIFEST", "signposts.yaml"),
		CredibilityPolicy: os.Getenv("CREDIBILITY_POLICY"),
		IngestRPS:         getfloat("INGEST_RPS", 5),
		IngestBurst:       getint("INGEST_BURST", 10),
	}
	cfg.RedisDB = getint("REDIS_DB", 0)
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getfloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
