// Package config provides configuration management for the interview servers.
// This file contains the lightweight configuration for standalone operation.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/clinical-interview-sim/internal/domain"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external databases and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir    string // Base directory for the transcript database and exports
	CatalogDir string // Optional directory of catalog YAML overrides

	// Session registry
	MaxSessions int
	SessionTTL  time.Duration

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".clinical-interview-sim")

	return &LiteConfig{
		DataDir:     dataDir,
		MaxSessions: 100,
		SessionTTL:  4 * time.Hour,
		LogLevel:    "info",
		LogFormat:   "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("INTERVIEW_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	cfg.CatalogDir = os.Getenv("INTERVIEW_CATALOG_DIR")

	if v := os.Getenv("INTERVIEW_MAX_SESSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxSessions = n
		}
	}
	if v := os.Getenv("INTERVIEW_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SessionTTL = d
		}
	}

	if v := os.Getenv("INTERVIEW_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("INTERVIEW_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// TranscriptDBPath returns the path to the transcript SQLite database.
func (c *LiteConfig) TranscriptDBPath() string {
	return filepath.Join(c.DataDir, "transcripts.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}

// Config expands the lite settings into a full configuration with a SQLite store.
func (c *LiteConfig) Config() *domain.Config {
	return &domain.Config{
		Environment: "development",
		Generator:   domain.DefaultGeneratorConfig(),
		Scoring:     domain.DefaultScoringConfig(),
		Sessions:    domain.SessionConfig{MaxSessions: c.MaxSessions, TTL: c.SessionTTL},
		Store:       domain.StoreConfig{Driver: "sqlite", SQLitePath: c.TranscriptDBPath()},
		Logging:     domain.LoggingConfig{Level: c.LogLevel, Format: c.LogFormat},
	}
}
