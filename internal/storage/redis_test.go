package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a Redis storage on it
func setupTestRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewRedis(client, ttl)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return store, mr, cleanup
}

func TestRedis_GetMissing(t *testing.T) {
	store, _, cleanup := setupTestRedis(t, 0)
	defer cleanup()

	v, ok, err := store.Get(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestRedis_GetExisting(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t, 0)
	defer cleanup()

	mr.Set("shoppingCart:abc", `[{"id":"1-default"}]`)

	v, ok, err := store.Get(context.Background(), "shoppingCart:abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"1-default"}]`, v)
}

func TestRedis_SetWithoutTTL(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t, 0)
	defer cleanup()

	require.NoError(t, store.Set(context.Background(), "k", "[]"))

	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "[]", got)
	assert.Equal(t, time.Duration(0), mr.TTL("k"))
}

func TestRedis_SetWithTTL(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t, 15*time.Minute)
	defer cleanup()

	require.NoError(t, store.Set(context.Background(), "k", "[]"))

	ttl := mr.TTL("k")
	assert.GreaterOrEqual(t, ttl, 15*time.Minute)
	assert.Less(t, ttl, 20*time.Minute)

	mr.FastForward(21 * time.Minute)
	_, ok, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_ServerDown(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t, 0)
	defer cleanup()

	mr.Close()

	_, _, err := store.Get(context.Background(), "k")
	assert.ErrorContains(t, err, "redis get failed")
	err = store.Set(context.Background(), "k", "[]")
	assert.ErrorContains(t, err, "redis set failed")
}

func TestRedis_CartRoundTrip(t *testing.T) {
	store, _, cleanup := setupTestRedis(t, time.Hour)
	defer cleanup()

	exerciseBackend(t, store)
}

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	b, err := Open(context.Background(), Config{Driver: DriverRedis, RedisAddr: mr.Addr()})
	require.NoError(t, err)
	defer b.Close()

	exerciseBackend(t, b)
}
