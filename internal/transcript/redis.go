package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinical-interview-sim/internal/domain"
)

const (
	redisKeyPrefix = "transcript:"
	redisIndexKey  = "transcripts:index"
)

// RedisStore keeps transcripts as JSON values with an optional TTL. A sorted set
// scored by creation time indexes them for listing.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to redisURL. A zero ttl keeps transcripts forever.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStoreFromClient(client, ttl), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(sessionID string) string {
	return redisKeyPrefix + sessionID
}

// Save stores the transcript and indexes it.
func (s *RedisStore) Save(ctx context.Context, t *Transcript) error {
	if err := validate(t); err != nil {
		return err
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisKey(t.SessionID), data, s.ttl)
		pipe.ZAdd(ctx, redisIndexKey, redis.Z{
			Score:  float64(t.CreatedAt.UnixNano()),
			Member: t.SessionID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

// Get returns the transcript for sessionID.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Transcript, error) {
	data, err := s.client.Get(ctx, redisKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("transcript %s: %w", sessionID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode transcript: %w", err)
	}
	return &t, nil
}

// List returns transcripts, newest first. Index entries whose value has expired
// are pruned as they are encountered.
func (s *RedisStore) List(ctx context.Context, limit, offset int) ([]*Transcript, error) {
	if err := s.pruneExpired(ctx); err != nil {
		return nil, err
	}
	ids, err := s.client.ZRevRange(ctx, redisIndexKey, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}

	var result []*Transcript
	for _, id := range ids {
		t, err := s.Get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			s.client.ZRem(ctx, redisIndexKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, nil
}

// Count returns the number of indexed transcripts.
func (s *RedisStore) Count(ctx context.Context) (int64, error) {
	if err := s.pruneExpired(ctx); err != nil {
		return 0, err
	}
	n, err := s.client.ZCard(ctx, redisIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count transcripts: %w", err)
	}
	return n, nil
}

// Delete removes the transcript and its index entry.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisKey(sessionID))
		pipe.ZRem(ctx, redisIndexKey, sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}
	return nil
}

// pruneExpired drops index entries older than the TTL.
func (s *RedisStore) pruneExpired(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-s.ttl).UnixNano()
	err := s.client.ZRemRangeByScore(ctx, redisIndexKey, "-inf", "("+strconv.FormatInt(cutoff, 10)).Err()
	if err != nil {
		return fmt.Errorf("failed to prune transcript index: %w", err)
	}
	return nil
}

// ExportJSON writes every transcript as one JSON document.
func (s *RedisStore) ExportJSON(ctx context.Context, w io.Writer) error {
	return exportJSON(ctx, s, w)
}

// ImportJSON imports transcripts, skipping sessions that already exist.
func (s *RedisStore) ImportJSON(ctx context.Context, r io.Reader) (int, int, error) {
	return importJSON(ctx, s, r)
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
