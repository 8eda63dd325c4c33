package transcript

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/clinical-interview-sim/internal/domain"
)

// Store drivers accepted by Open.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Open builds the store selected by cfg. The "none" driver, or an empty one, returns
// a nil Store and domain.ErrStoreDisabled. Network-backed stores are wrapped in a
// BreakerStore.
func Open(cfg domain.StoreConfig, logger *logrus.Logger) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverNone:
		return nil, domain.ErrStoreDisabled
	case DriverSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	case DriverPostgres:
		pg, err := NewPostgresStoreFromURL(cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		return NewBreakerStore(pg, DefaultBreakerConfig("transcripts-postgres"), logger), nil
	case DriverRedis:
		rs, err := NewRedisStore(cfg.RedisURL, cfg.KeyTTL)
		if err != nil {
			return nil, err
		}
		return NewBreakerStore(rs, DefaultBreakerConfig("transcripts-redis"), logger), nil
	default:
		return nil, fmt.Errorf("unknown transcript store driver %q", cfg.Driver)
	}
}
