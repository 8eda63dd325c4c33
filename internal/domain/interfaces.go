package domain

import "time"

// Rand is the random source the generator and the disclosure engine draw from.
// *rand.Rand from math/rand/v2 satisfies it; tests inject seeded instances.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Clock returns the current time. Sessions stamp question log entries with it.
type Clock func() time.Time

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetGeneratorConfig() *GeneratorConfig
	GetStoreConfig() *StoreConfig
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
