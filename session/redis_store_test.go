//go:build integration

package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisAddr() string {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	return addr
}

func setupRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	store, err := NewRedisStore(RedisStoreConfig{
		Addr: getRedisAddr(),
		DB:   15, // Use DB 15 for testing
	})
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	require.NotNil(t, store)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestRedisStoreSaveLoad(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	s := New("redis-1")
	s.SessionExpiryInterval = 300
	require.NoError(t, s.TrackOutgoingPublish(qos1Publish(6)))

	require.NoError(t, store.Save(ctx, s))
	t.Cleanup(func() { _ = store.Delete(ctx, "redis-1") })

	loaded, err := store.Load(ctx, "redis-1")
	require.NoError(t, err)
	assert.Equal(t, "redis-1", loaded.ClientID)
	assert.Equal(t, 1, loaded.InflightCount())
}

func TestRedisStoreLoadMissing(t *testing.T) {
	store := setupRedisStore(t)
	_, err := store.Load(context.Background(), "definitely-missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreDeleteAndExists(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, New("redis-del")))

	exists, err := store.Exists(ctx, "redis-del")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete(ctx, "redis-del"))

	exists, err = store.Exists(ctx, "redis-del")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisStoreTTLFromExpiryInterval(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	s := New("redis-ttl")
	s.SessionExpiryInterval = 2

	require.NoError(t, store.Save(ctx, s))
	t.Cleanup(func() { _ = store.Delete(ctx, "redis-ttl") })

	exists, err := store.Exists(ctx, "redis-ttl")
	require.NoError(t, err)
	assert.True(t, exists)

	time.Sleep(2500 * time.Millisecond)

	exists, err = store.Exists(ctx, "redis-ttl")
	require.NoError(t, err)
	assert.False(t, exists)
}
