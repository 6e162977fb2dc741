// Package redis_test provides unit tests for the Redis cache implementation.
package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatgate/chat-service/internal/core/cache"
	rediscache "github.com/chatgate/chat-service/internal/infrastructure/cache/redis"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, cache.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := rediscache.NewClient(rediscache.Config{
		Host:     mr.Host(),
		Port:     mr.Port(),
		Password: "",
		DB:       0,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return mr, client
}

func TestNewClient_Success(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := rediscache.NewClient(rediscache.Config{
		Host:     mr.Host(),
		Port:     mr.Port(),
		Password: "",
		DB:       0,
	})

	assert.NoError(t, err)
	assert.NotNil(t, client)

	client.Close()
}

func TestCache_SetAndGet(t *testing.T) {
	_, client := setupMiniredis(t)
	ctx := context.Background()

	key := "test-key"
	value := []byte("test-value")
	ttl := 1 * time.Minute

	// Set
	err := client.Set(ctx, key, value, ttl)
	assert.NoError(t, err)

	// Get
	result, err := client.Get(ctx, key)
	assert.NoError(t, err)
	assert.Equal(t, value, result)
}

func TestCache_GetNotFound(t *testing.T) {
	_, client := setupMiniredis(t)
	ctx := context.Background()

	result, err := client.Get(ctx, "non-existent-key")

	// According to interface: Get returns nil if key does not exist
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestCache_SetNX(t *testing.T) {
	_, client := setupMiniredis(t)
	ctx := context.Background()

	key := "connection:conn-1"

	// First write wins
	stored, err := client.SetNX(ctx, key, []byte("first"), 1*time.Minute)
	assert.NoError(t, err)
	assert.True(t, stored)

	// Second write is rejected and the original value survives
	stored, err = client.SetNX(ctx, key, []byte("second"), 1*time.Minute)
	assert.NoError(t, err)
	assert.False(t, stored)

	result, err := client.Get(ctx, key)
	assert.NoError(t, err)
	assert.Equal(t, []byte("first"), result)
}

func TestCache_Exists(t *testing.T) {
	mr, client := setupMiniredis(t)
	ctx := context.Background()

	exists, err := client.Exists(ctx, "missing")
	assert.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, client.Set(ctx, "present", []byte("v"), 1*time.Second))

	exists, err = client.Exists(ctx, "present")
	assert.NoError(t, err)
	assert.True(t, exists)

	// Expiry makes the key vanish from Exists too
	mr.FastForward(2 * time.Second)

	exists, err = client.Exists(ctx, "present")
	assert.NoError(t, err)
	assert.False(t, exists)
}

func TestCache_Delete(t *testing.T) {
	_, client := setupMiniredis(t)
	ctx := context.Background()

	key := "test-key"
	value := []byte("test-value")

	// Set
	err := client.Set(ctx, key, value, 1*time.Minute)
	require.NoError(t, err)

	// Delete
	deleted, err := client.Delete(ctx, key)
	assert.NoError(t, err)
	assert.True(t, deleted)

	// Deleting again is not an error
	deleted, err = client.Delete(ctx, key)
	assert.NoError(t, err)
	assert.False(t, deleted)

	// Verify deleted - Get returns nil when key doesn't exist
	result, err := client.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestCache_DeletePattern(t *testing.T) {
	mr, client := setupMiniredis(t)
	ctx := context.Background()

	// Set multiple keys
	client.Set(ctx, "authconn:conn-1", []byte("value1"), 1*time.Minute)
	client.Set(ctx, "authconn:conn-2", []byte("value2"), 1*time.Minute)
	client.Set(ctx, "connection:conn-1", []byte("value3"), 1*time.Minute)

	// Delete pattern
	deleted, err := client.DeletePattern(ctx, "authconn:*")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	// Verify only matching keys deleted
	keys := mr.Keys()
	assert.Contains(t, keys, "connection:conn-1")
	assert.NotContains(t, keys, "authconn:conn-1")
	assert.NotContains(t, keys, "authconn:conn-2")
}

func TestCache_SortedSetRange(t *testing.T) {
	_, client := setupMiniredis(t)
	ctx := context.Background()

	set := "connections:by-ttl"

	require.NoError(t, client.ZAdd(ctx, set, "conn-1", 100))
	require.NoError(t, client.ZAdd(ctx, set, "conn-2", 200))
	require.NoError(t, client.ZAdd(ctx, set, "conn-3", 300))

	// Range covers only scores <= 200
	members, err := client.ZRangeByScore(ctx, set, 0, 200)
	assert.NoError(t, err)
	assert.Equal(t, []string{"conn-1", "conn-2"}, members)

	// Re-scoring a member moves it out of the range
	require.NoError(t, client.ZAdd(ctx, set, "conn-1", 400))

	members, err = client.ZRangeByScore(ctx, set, 0, 200)
	assert.NoError(t, err)
	assert.Equal(t, []string{"conn-2"}, members)
}

func TestCache_SortedSetRemove(t *testing.T) {
	_, client := setupMiniredis(t)
	ctx := context.Background()

	set := "connections:by-ttl"

	require.NoError(t, client.ZAdd(ctx, set, "conn-1", 100))
	require.NoError(t, client.ZAdd(ctx, set, "conn-2", 200))

	err := client.ZRem(ctx, set, "conn-1", "conn-missing")
	assert.NoError(t, err)

	members, err := client.ZRangeByScore(ctx, set, 0, 1000)
	assert.NoError(t, err)
	assert.Equal(t, []string{"conn-2"}, members)

	// Removing nothing is a no-op
	assert.NoError(t, client.ZRem(ctx, set))
}

func TestCache_Ping(t *testing.T) {
	_, client := setupMiniredis(t)
	ctx := context.Background()

	err := client.Ping(ctx)
	assert.NoError(t, err)
}

func TestCache_TTLExpiration(t *testing.T) {
	mr, client := setupMiniredis(t)
	ctx := context.Background()

	key := "expiring-key"
	value := []byte("expiring-value")

	// Set with short TTL
	err := client.Set(ctx, key, value, 1*time.Second)
	require.NoError(t, err)

	// Verify exists
	result, err := client.Get(ctx, key)
	assert.NoError(t, err)
	assert.Equal(t, value, result)

	// Fast-forward time
	mr.FastForward(2 * time.Second)

	// Verify expired - Get returns nil when key doesn't exist
	result, err = client.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result)
}
