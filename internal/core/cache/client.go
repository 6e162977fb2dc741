// Package cache defines the cache client interface.
package cache

import (
	"context"
	"time"
)

// Client is a higher-level cache client that wraps the Cache interface.
type Client interface {
	// GetCache returns the underlying Cache implementation.
	GetCache() Cache

	// Get retrieves a value from the cache.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX stores a value only if the key does not already exist.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Exists checks whether a key is present without reading its value.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes a key from the cache.
	Delete(ctx context.Context, key string) (bool, error)

	// DeletePattern removes all keys matching the given pattern.
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

	// Close closes the cache client connection.
	Close() error
}
