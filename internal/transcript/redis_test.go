package transcript

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-interview-sim/internal/domain"
)

// getTestRedis returns a store on a flushed database, skipping without TEST_REDIS_URL.
func getTestRedis(t *testing.T, ttl time.Duration) *RedisStore {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set, skipping Redis tests")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	require.NoError(t, client.FlushDB(context.Background()).Err())
	return NewRedisStoreFromClient(client, ttl)
}

func TestRedisStore_SaveGetDelete(t *testing.T) {
	store := getTestRedis(t, 0)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleTranscript("r-1")))

	got, err := store.Get(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551557), got.Seed)
	assert.Equal(t, "C", got.Grade())

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, store.Delete(ctx, "r-1"))
	_, err = store.Get(ctx, "r-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedisStore_ListNewestFirst(t *testing.T) {
	store := getTestRedis(t, time.Hour)
	defer store.Close()
	ctx := context.Background()

	for i, id := range []string{"old", "mid", "new"} {
		tr := sampleTranscript(id)
		tr.CreatedAt = time.Now().Add(time.Duration(i-3) * time.Minute)
		require.NoError(t, store.Save(ctx, tr))
	}

	list, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].SessionID)
	assert.Equal(t, "mid", list[1].SessionID)
}

func TestRedisStore_ExportImport(t *testing.T) {
	store := getTestRedis(t, 0)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleTranscript("x")))
	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(ctx, &buf))

	imported, skipped, err := store.ImportJSON(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 0, imported)
	assert.Equal(t, 1, skipped)
}
