package ports

import (
	"context"
	"time"
)

// Cache is a TTL key-value store for transient login state, currently the
// hashed one-time codes awaiting a second-factor submission.
type Cache interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the value for key, or core.ErrNotFound when the key is
	// absent or expired.
	Get(ctx context.Context, key string) (string, error)

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
