// Package cachepkg provides a read-through cache abstraction for derived
// projections. The cache is advisory: correctness never depends on its
// contents, so implementations degrade to misses instead of failing.
package cachepkg

import (
	"context"
	"time"
)

// Cache provides get/set/del access to a key-value cache.
//
//go:generate mockgen -source cache.go -destination cache_mock.go -package cachepkg
type Cache interface {
	// Get returns the cached value for the key and whether it was present.
	Get(ctx context.Context, key string) (string, bool)

	// Set stores the value under the key for at most ttl.
	Set(ctx context.Context, key, value string, ttl time.Duration)

	// Del evicts the key.
	Del(ctx context.Context, key string)
}

// UserKey returns the cache key for the user projection of the given username.
func UserKey(username string) string {
	return "user:" + username
}
