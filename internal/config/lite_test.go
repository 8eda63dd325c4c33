package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Empty(t, cfg.CatalogDir)
	assert.Equal(t, 100, cfg.MaxSessions)
	assert.Equal(t, 4*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 100, cfg.MaxSessions)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("INTERVIEW_DATA_DIR", "/tmp/test-interview")
	t.Setenv("INTERVIEW_CATALOG_DIR", "/tmp/catalogs")
	t.Setenv("INTERVIEW_MAX_SESSIONS", "25")
	t.Setenv("INTERVIEW_SESSION_TTL", "90m")
	t.Setenv("INTERVIEW_LOG_LEVEL", "debug")
	t.Setenv("INTERVIEW_LOG_FORMAT", "text")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-interview", cfg.DataDir)
	assert.Equal(t, "/tmp/catalogs", cfg.CatalogDir)
	assert.Equal(t, 25, cfg.MaxSessions)
	assert.Equal(t, 90*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadLiteConfig_IgnoresBadValues(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("INTERVIEW_MAX_SESSIONS", "-4")
	t.Setenv("INTERVIEW_SESSION_TTL", "forever")

	cfg := LoadLiteConfig()

	assert.Equal(t, 100, cfg.MaxSessions)
	assert.Equal(t, 4*time.Hour, cfg.SessionTTL)
}

func TestLiteConfig_Paths(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.clinical-interview-sim"}

	assert.Equal(t, "/home/user/.clinical-interview-sim/transcripts.db", cfg.TranscriptDBPath())
	assert.Equal(t, "/home/user/.clinical-interview-sim/exports", cfg.ExportDir())
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: filepath.Join(t.TempDir(), "interview")}

	err := cfg.EnsureDataDir()
	require.NoError(t, err)

	_, err = os.Stat(cfg.DataDir)
	assert.NoError(t, err)

	_, err = os.Stat(cfg.ExportDir())
	assert.NoError(t, err)
}

func TestLiteConfig_ExpandsToValidConfig(t *testing.T) {
	lite := &LiteConfig{DataDir: "/data", MaxSessions: 10, SessionTTL: time.Hour, LogLevel: "info", LogFormat: "json"}

	cfg := lite.Config()
	cfg.Server.Port = 8080

	require.NoError(t, Validate(cfg))
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/data/transcripts.db", cfg.Store.SQLitePath)
	assert.Equal(t, 10, cfg.Sessions.MaxSessions)
	assert.Equal(t, 4.0, cfg.Generator.FirstDegreeBoost)
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"INTERVIEW_DATA_DIR",
		"INTERVIEW_CATALOG_DIR",
		"INTERVIEW_MAX_SESSIONS",
		"INTERVIEW_SESSION_TTL",
		"INTERVIEW_LOG_LEVEL",
		"INTERVIEW_LOG_FORMAT",
	}
	for _, v := range vars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}
