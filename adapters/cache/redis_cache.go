// Package cache implements the transient TTL key-value port backing
// one-time-code storage.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rumsan/gatekeeper/core"
	"github.com/rumsan/gatekeeper/ports"
)

// RedisCache is a Redis implementation of the Cache interface.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a Redis-backed cache. Keys are namespaced under
// "gatekeeper:".
func NewRedisCache(client *redis.Client) ports.Cache {
	return &RedisCache{
		client: client,
		prefix: "gatekeeper:",
	}
}

// Set stores a key with a value and expiration time.
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreFailed, err)
	}
	return nil
}

// Get retrieves a value by key.
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	value, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", core.ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", core.ErrStoreFailed, err)
	}
	return value, nil
}

// Delete removes a key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreFailed, err)
	}
	return nil
}
