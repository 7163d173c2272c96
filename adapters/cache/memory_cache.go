package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rumsan/gatekeeper/core"
	"github.com/rumsan/gatekeeper/ports"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is an in-memory implementation of the Cache interface,
// intended for tests and single-process deployments.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]entry
}

// NewMemoryCache creates a new MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]entry)}
}

// Set stores a key with a value and expiration time. A zero ttl means no
// expiry.
func (c *MemoryCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	c.data[key] = e
	return nil
}

// Get retrieves a value by key.
func (c *MemoryCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	if !ok {
		return "", core.ErrNotFound
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		return "", core.ErrNotFound
	}
	return e.value, nil
}

// Delete removes a key.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	return nil
}

var _ ports.Cache = (*MemoryCache)(nil)
