package config

import (
	"log"
	"os"
	"strconv"
)

// FineMode controls whether fine amounts stay fixed after creation or are
// refreshed on each sweep while unpaid.
const (
	FineModeFixed  = "fixed"
	FineModeAccrue = "accrue"
)

type Config struct {
	Port        string
	DatabaseDSN string
	Env         string
	// IssueLimit is the per-reader ceiling on open issues + open requests.
	IssueLimit int
	// FineRate is the amount charged per overdue day at fine creation.
	FineRate float64
	FineMode string
	CoverDir string
}

// Load loads configuration from environment with sensible defaults.
// Precedence: explicit env var > .env file (if loaded by the caller) > default.
func Load() Config {
	cfg := Config{}
	cfg.Port = getEnv("PORT", "8080")
	cfg.DatabaseDSN = getEnv("DATABASE_DSN", "file:lms.db")
	cfg.Env = getEnv("APP_ENV", "development")
	cfg.IssueLimit = getInt("ISSUE_LIMIT", 5)
	cfg.FineRate = getFloat("FINE_RATE", 2)
	cfg.FineMode = getEnv("FINE_MODE", FineModeFixed)
	if cfg.FineMode != FineModeFixed && cfg.FineMode != FineModeAccrue {
		log.Printf("invalid FINE_MODE %q, falling back to %q", cfg.FineMode, FineModeFixed)
		cfg.FineMode = FineModeFixed
	}
	cfg.CoverDir = getEnv("COVER_DIR", "covers")
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Printf("invalid integer for %s: %s", key, v)
			return def
		}
		return n
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			log.Printf("invalid number for %s: %s", key, v)
			return def
		}
		return f
	}
	return def
}

// ParseBool reads an env var as bool with default.
func ParseBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid boolean for %s: %s", key, v)
			return def
		}
		return b
	}
	return def
}
