// Package cache provides the bounded in-memory store that holds live interview
// sessions between requests.
package cache

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrInvalidSize is returned for a negative capacity.
var ErrInvalidSize = errors.New("cache size must not be negative")

// Stats reports cache counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
	Capacity  int   `json:"capacity"`
}

// MemoryCache is a size-bounded LRU whose entries also expire after a fixed TTL.
// A zero capacity means unbounded and a zero TTL means entries never expire.
type MemoryCache[V any] struct {
	lru      *expirable.LRU[string, V]
	capacity int

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewMemoryCache creates a cache. onEvict, if non-nil, runs for every entry that
// leaves the cache, whether by expiry, capacity pressure or explicit removal.
func NewMemoryCache[V any](maxItems int, ttl time.Duration, onEvict func(key string, value V)) (*MemoryCache[V], error) {
	if maxItems < 0 {
		return nil, ErrInvalidSize
	}
	c := &MemoryCache[V]{capacity: maxItems}
	c.lru = expirable.NewLRU[string, V](maxItems, func(key string, value V) {
		c.evictions.Add(1)
		if onEvict != nil {
			onEvict(key, value)
		}
	}, ttl)
	return c, nil
}

// Get returns the value for key and refreshes its recency.
func (c *MemoryCache[V]) Get(key string) (V, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Set stores value under key, evicting the least recently used entry when full.
func (c *MemoryCache[V]) Set(key string, value V) {
	c.lru.Add(key, value)
}

// Delete removes key and reports whether it was present.
func (c *MemoryCache[V]) Delete(key string) bool {
	return c.lru.Remove(key)
}

// Contains reports whether key is cached without touching recency.
func (c *MemoryCache[V]) Contains(key string) bool {
	return c.lru.Contains(key)
}

// Keys returns the cached keys from oldest to newest.
func (c *MemoryCache[V]) Keys() []string {
	return c.lru.Keys()
}

// Len returns the number of cached entries.
func (c *MemoryCache[V]) Len() int {
	return c.lru.Len()
}

// Purge removes every entry.
func (c *MemoryCache[V]) Purge() {
	c.lru.Purge()
}

// Stats returns the current counters.
func (c *MemoryCache[V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.lru.Len(),
		Capacity:  c.capacity,
	}
}
