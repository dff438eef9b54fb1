// Package cache provides a minimal set-if-absent cache used for publish
// cooldowns, with in-memory and Redis backends.
package cache

import (
	"context"
	"time"
)

// Cache records keys with a TTL. SetNX reports whether the key was newly set;
// false means it already existed and has not expired.
type Cache interface {
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Close() error
}
