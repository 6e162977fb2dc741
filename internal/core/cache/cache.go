// Package cache defines the cache interface and factory.
package cache

import (
	"context"
	"time"
)

// Cache defines the interface for cache operations.
type Cache interface {
	// Get retrieves a value from the cache by key.
	// Returns nil if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the default TTL is used.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX stores a value only if the key does not already exist.
	// Returns true if the value was stored.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Exists checks whether a key is present without reading its value.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes a key from the cache.
	// Returns true if the key was deleted, false if it didn't exist.
	Delete(ctx context.Context, key string) (bool, error)

	// DeletePattern removes all keys matching the given pattern.
	// Returns the number of keys deleted.
	DeletePattern(ctx context.Context, pattern string) (int64, error)

	// ZAdd adds or updates a member of a sorted set with the given score.
	ZAdd(ctx context.Context, set, member string, score float64) error

	// ZRem removes members from a sorted set.
	ZRem(ctx context.Context, set string, members ...string) error

	// ZRangeByScore returns the members of a sorted set whose score lies
	// within [min, max].
	ZRangeByScore(ctx context.Context, set string, min, max float64) ([]string, error)

	// Ping checks if the cache connection is alive.
	Ping(ctx context.Context) error

	// Close closes the cache connection.
	Close() error
}
