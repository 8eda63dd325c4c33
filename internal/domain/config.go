package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Generator   GeneratorConfig `mapstructure:"generator"`
	Scoring     ScoringConfig   `mapstructure:"scoring"`
	Catalogs    CatalogConfig   `mapstructure:"catalogs"`
	Sessions    SessionConfig   `mapstructure:"sessions"`
	Store       StoreConfig     `mapstructure:"store"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Logging     LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// GeneratorConfig holds the probability knobs of family-graph generation.
type GeneratorConfig struct {
	FirstDegreeBoost  float64 `mapstructure:"first_degree_boost"`
	SecondDegreeBoost float64 `mapstructure:"second_degree_boost"`
	ThirdDegreeBoost  float64 `mapstructure:"third_degree_boost"`

	StrongInheritance   float64 `mapstructure:"strong_inheritance"`
	ModerateInheritance float64 `mapstructure:"moderate_inheritance"`
	WeakInheritance     float64 `mapstructure:"weak_inheritance"`

	GenderMatch    float64 `mapstructure:"gender_match"`
	GenderMismatch float64 `mapstructure:"gender_mismatch"`

	AgeJitter       int `mapstructure:"age_jitter"`
	DiagnosisJitter int `mapstructure:"diagnosis_jitter"`
	DeathAgeOffset  int `mapstructure:"death_age_offset"`

	FatalDeathProbability float64 `mapstructure:"fatal_death_probability"`
	FatalCauseProbability float64 `mapstructure:"fatal_cause_probability"`
	NaturalCausesAge      int     `mapstructure:"natural_causes_age"`

	DefaultPatientAge int `mapstructure:"default_patient_age"`
	MaxPatientAge     int `mapstructure:"max_patient_age"`
}

// DefaultGeneratorConfig returns the documented multipliers and probabilities.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		FirstDegreeBoost:      4.0,
		SecondDegreeBoost:     2.0,
		ThirdDegreeBoost:      1.0,
		StrongInheritance:     1.5,
		ModerateInheritance:   1.0,
		WeakInheritance:       0.7,
		GenderMatch:           1.5,
		GenderMismatch:        0.3,
		AgeJitter:             3,
		DiagnosisJitter:       10,
		DeathAgeOffset:        5,
		FatalDeathProbability: 0.4,
		FatalCauseProbability: 0.6,
		NaturalCausesAge:      85,
		DefaultPatientAge:     45,
		MaxPatientAge:         110,
	}
}

// ScoringConfig tunes the keyword heuristics of the coverage scorer.
type ScoringConfig struct {
	MinKeywordLength  int `mapstructure:"min_keyword_length"`
	MinKeywordOverlap int `mapstructure:"min_keyword_overlap"`
}

// DefaultScoringConfig requires keywords longer than three characters and a single
// shared keyword to count an essential question as asked.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{MinKeywordLength: 4, MinKeywordOverlap: 1}
}

// CatalogConfig points at external catalog files. Empty paths use the embedded data.
type CatalogConfig struct {
	ConditionsPath string `mapstructure:"conditions_path"`
	RelevancePath  string `mapstructure:"relevance_path"`
	QuestionsPath  string `mapstructure:"questions_path"`
}

// SessionConfig bounds the in-memory session registry.
type SessionConfig struct {
	MaxSessions int           `mapstructure:"max_sessions"`
	TTL         time.Duration `mapstructure:"ttl"`
}

// StoreConfig selects the transcript store.
type StoreConfig struct {
	Driver      string        `mapstructure:"driver"` // "none", "sqlite", "postgres", "redis"
	SQLitePath  string        `mapstructure:"sqlite_path"`
	PostgresURL string        `mapstructure:"postgres_url"`
	RedisURL    string        `mapstructure:"redis_url"`
	KeyTTL      time.Duration `mapstructure:"key_ttl"`
}

// RateLimitConfig limits API requests per client.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
