package cachepkg

import (
	"context"
	"time"
)

// Noop is a Cache that stores nothing. Every read is a miss.
type Noop struct{}

// Get always reports a miss.
func (Noop) Get(ctx context.Context, key string) (string, bool) { return "", false }

// Set discards the value.
func (Noop) Set(ctx context.Context, key, value string, ttl time.Duration) {}

// Del does nothing.
func (Noop) Del(ctx context.Context, key string) {}
