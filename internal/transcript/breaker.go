package transcript

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/clinical-interview-sim/internal/domain"
)

// BreakerConfig tunes the circuit breaker around a remote store.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig trips after five consecutive failures and probes again after 30s.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerStore guards a Store with a circuit breaker so a failing database does not
// stall every session end. Not-found results do not count as failures.
type BreakerStore struct {
	inner   Store
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerStore wraps inner.
func NewBreakerStore(inner Store, cfg BreakerConfig, logger *logrus.Logger) *BreakerStore {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrNotFound) || errors.Is(err, errMissingSessionID)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from,
				"to_state":        to,
			}).Warn("Circuit breaker state changed")
		},
	}
	return &BreakerStore{inner: inner, breaker: gobreaker.NewCircuitBreaker(settings)}
}

// State returns the breaker state.
func (b *BreakerStore) State() gobreaker.State {
	return b.breaker.State()
}

func (b *BreakerStore) run(fn func() (interface{}, error)) (interface{}, error) {
	return b.breaker.Execute(fn)
}

// Save implements Store.
func (b *BreakerStore) Save(ctx context.Context, t *Transcript) error {
	_, err := b.run(func() (interface{}, error) { return nil, b.inner.Save(ctx, t) })
	return err
}

// Get implements Store.
func (b *BreakerStore) Get(ctx context.Context, sessionID string) (*Transcript, error) {
	res, err := b.run(func() (interface{}, error) { return b.inner.Get(ctx, sessionID) })
	if err != nil {
		return nil, err
	}
	return res.(*Transcript), nil
}

// List implements Store.
func (b *BreakerStore) List(ctx context.Context, limit, offset int) ([]*Transcript, error) {
	res, err := b.run(func() (interface{}, error) { return b.inner.List(ctx, limit, offset) })
	if err != nil {
		return nil, err
	}
	return res.([]*Transcript), nil
}

// Count implements Store.
func (b *BreakerStore) Count(ctx context.Context) (int64, error) {
	res, err := b.run(func() (interface{}, error) { return b.inner.Count(ctx) })
	if err != nil {
		return 0, err
	}
	return res.(int64), nil
}

// Delete implements Store.
func (b *BreakerStore) Delete(ctx context.Context, sessionID string) error {
	_, err := b.run(func() (interface{}, error) { return nil, b.inner.Delete(ctx, sessionID) })
	return err
}

// ExportJSON implements Store.
func (b *BreakerStore) ExportJSON(ctx context.Context, w io.Writer) error {
	_, err := b.run(func() (interface{}, error) { return nil, b.inner.ExportJSON(ctx, w) })
	return err
}

// ImportJSON implements Store.
func (b *BreakerStore) ImportJSON(ctx context.Context, r io.Reader) (int, int, error) {
	var imported, skipped int
	_, err := b.run(func() (interface{}, error) {
		var err error
		imported, skipped, err = b.inner.ImportJSON(ctx, r)
		return nil, err
	})
	return imported, skipped, err
}

// Close closes the wrapped store.
func (b *BreakerStore) Close() error {
	return b.inner.Close()
}
