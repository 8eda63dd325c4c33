package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/clinical-interview-sim/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v      *viper.Viper
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	return NewManagerWithViper(viper.New())
}

// NewManagerWithViper builds a manager on an existing viper instance, which lets
// callers and tests point it at a specific file.
func NewManagerWithViper(v *viper.Viper) (*Manager, error) {
	m := &Manager{v: v}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := m.v

	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/clinical-interview-sim/")
	}

	v.SetEnvPrefix("INTERVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")

	// Generator defaults
	g := domain.DefaultGeneratorConfig()
	v.SetDefault("generator.first_degree_boost", g.FirstDegreeBoost)
	v.SetDefault("generator.second_degree_boost", g.SecondDegreeBoost)
	v.SetDefault("generator.third_degree_boost", g.ThirdDegreeBoost)
	v.SetDefault("generator.strong_inheritance", g.StrongInheritance)
	v.SetDefault("generator.moderate_inheritance", g.ModerateInheritance)
	v.SetDefault("generator.weak_inheritance", g.WeakInheritance)
	v.SetDefault("generator.gender_match", g.GenderMatch)
	v.SetDefault("generator.gender_mismatch", g.GenderMismatch)
	v.SetDefault("generator.age_jitter", g.AgeJitter)
	v.SetDefault("generator.diagnosis_jitter", g.DiagnosisJitter)
	v.SetDefault("generator.death_age_offset", g.DeathAgeOffset)
	v.SetDefault("generator.fatal_death_probability", g.FatalDeathProbability)
	v.SetDefault("generator.fatal_cause_probability", g.FatalCauseProbability)
	v.SetDefault("generator.natural_causes_age", g.NaturalCausesAge)
	v.SetDefault("generator.default_patient_age", g.DefaultPatientAge)
	v.SetDefault("generator.max_patient_age", g.MaxPatientAge)

	// Scoring defaults
	s := domain.DefaultScoringConfig()
	v.SetDefault("scoring.min_keyword_length", s.MinKeywordLength)
	v.SetDefault("scoring.min_keyword_overlap", s.MinKeywordOverlap)

	// Catalog defaults: empty paths use the embedded data
	v.SetDefault("catalogs.conditions_path", "")
	v.SetDefault("catalogs.relevance_path", "")
	v.SetDefault("catalogs.questions_path", "")

	// Session registry defaults
	v.SetDefault("sessions.max_sessions", 1000)
	v.SetDefault("sessions.ttl", "4h")

	// Transcript store defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "transcripts.db")
	v.SetDefault("store.postgres_url", "")
	v.SetDefault("store.redis_url", "redis://localhost:6379")
	v.SetDefault("store.key_ttl", "720h")

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetGeneratorConfig returns family generator configuration
func (m *Manager) GetGeneratorConfig() *domain.GeneratorConfig {
	return &m.config.Generator
}

// GetStoreConfig returns transcript store configuration
func (m *Manager) GetStoreConfig() *domain.StoreConfig {
	return &m.config.Store
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	return Validate(m.config)
}

// Validate checks a configuration regardless of where it was loaded from.
func Validate(config *domain.Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	g := config.Generator
	for name, p := range map[string]float64{
		"fatal_death_probability": g.FatalDeathProbability,
		"fatal_cause_probability": g.FatalCauseProbability,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("generator %s must be within [0, 1], got %v", name, p)
		}
	}
	if g.FirstDegreeBoost < 0 || g.SecondDegreeBoost < 0 || g.ThirdDegreeBoost < 0 {
		return fmt.Errorf("relevance boosts must not be negative")
	}
	if g.AgeJitter < 0 || g.DiagnosisJitter < 0 || g.DeathAgeOffset < 0 {
		return fmt.Errorf("generator jitters must not be negative")
	}
	if g.MaxPatientAge <= 0 || g.DefaultPatientAge < 0 || g.DefaultPatientAge > g.MaxPatientAge {
		return fmt.Errorf("invalid patient age bounds: default %d, max %d", g.DefaultPatientAge, g.MaxPatientAge)
	}

	if config.Scoring.MinKeywordOverlap < 1 {
		return fmt.Errorf("min keyword overlap must be at least 1")
	}
	if config.Sessions.MaxSessions < 0 {
		return fmt.Errorf("max sessions must not be negative")
	}

	switch strings.ToLower(config.Store.Driver) {
	case "", "none":
	case "sqlite":
		if config.Store.SQLitePath == "" {
			return fmt.Errorf("SQLite path is required for the sqlite store")
		}
	case "postgres":
		if config.Store.PostgresURL == "" {
			return fmt.Errorf("PostgreSQL URL is required for the postgres store")
		}
	case "redis":
		if config.Store.RedisURL == "" {
			return fmt.Errorf("Redis URL is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown store driver: %s", config.Store.Driver)
	}

	if config.RateLimit.Enabled && (config.RateLimit.RequestsPerSecond <= 0 || config.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit needs positive requests_per_second and burst")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}

var _ domain.ConfigManager = (*Manager)(nil)
