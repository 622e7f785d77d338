package cachepkg

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewClient connects to Redis and verifies the connection.
func NewClient(addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// RedisCache is a Redis-backed Cache. Read errors count as misses and write
// errors are logged; a degraded cache must not fail requests.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache returns a RedisCache backed by the given client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get returns the cached value for the key and whether it was present.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	l := zerolog.Ctx(ctx)

	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			l.Warn().Err(err).Str("key", key).Msg("cache get failed")
		}

		return "", false
	}

	return value, true
}

// Set stores the value under the key for at most ttl.
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	l := zerolog.Ctx(ctx)

	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		l.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// Del evicts the key.
func (c *RedisCache) Del(ctx context.Context, key string) {
	l := zerolog.Ctx(ctx)

	if err := c.client.Del(ctx, key).Err(); err != nil {
		l.Warn().Err(err).Str("key", key).Msg("cache del failed")
	}
}
