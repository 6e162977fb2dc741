// Package redis provides the Redis cache client implementation.
package redis

import (
	"context"
	"time"

	"github.com/chatgate/chat-service/internal/core/cache"
)

// Client implements the cache.Client interface for Redis.
type Client struct {
	cache *Cache
}

// NewClient creates a new Redis cache client.
func NewClient(cfg Config) (*Client, error) {
	c, err := NewCache(cfg)
	if err != nil {
		return nil, err
	}

	return &Client{
		cache: c,
	}, nil
}

// GetCache returns the underlying Cache implementation.
func (c *Client) GetCache() cache.Cache {
	return c.cache
}

// Get retrieves a value from the cache.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	return c.cache.Get(ctx, key)
}

// Set stores a value in the cache.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.cache.Set(ctx, key, value, ttl)
}

// SetNX stores a value only if the key does not already exist.
func (c *Client) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return c.cache.SetNX(ctx, key, value, ttl)
}

// Exists checks whether a key is present without reading its value.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	return c.cache.Exists(ctx, key)
}

// Delete removes a key from the cache.
func (c *Client) Delete(ctx context.Context, key string) (bool, error) {
	return c.cache.Delete(ctx, key)
}

// DeletePattern removes all keys matching the given pattern.
func (c *Client) DeletePattern(ctx context.Context, pattern string) (int64, error) {
	return c.cache.DeletePattern(ctx, pattern)
}

// ZAdd adds or updates a member of a sorted set with the given score.
func (c *Client) ZAdd(ctx context.Context, set, member string, score float64) error {
	return c.cache.ZAdd(ctx, set, member, score)
}

// ZRem removes members from a sorted set.
func (c *Client) ZRem(ctx context.Context, set string, members ...string) error {
	return c.cache.ZRem(ctx, set, members...)
}

// ZRangeByScore returns the members of a sorted set with scores in [min, max].
func (c *Client) ZRangeByScore(ctx context.Context, set string, min, max float64) ([]string, error) {
	return c.cache.ZRangeByScore(ctx, set, min, max)
}

// Ping checks if the cache connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	return c.cache.Ping(ctx)
}

// Close closes the cache client connection.
func (c *Client) Close() error {
	return c.cache.Close()
}
