package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Fetch implements a JSON cache-aside read. When Redis is unavailable or the
// key misses, load is called and the result is cached with the given TTL.
// Cache failures never surface to the caller.
func Fetch[T any](ctx context.Context, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	c := GetClient()
	if c != nil {
		raw, err := c.Get(ctx, key).Result()
		if err == nil {
			var cached T
			if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
				return cached, nil
			}
			// Corrupt entry, drop it and fall through to the loader.
			c.Del(ctx, key)
		} else if !errors.Is(err, redis.Nil) {
			// Redis error, serve from the loader.
			c = nil
		}
	}

	value, err := load()
	if err != nil {
		return value, err
	}

	if c != nil {
		if raw, jsonErr := json.Marshal(value); jsonErr == nil {
			c.Set(ctx, key, raw, ttl)
		}
	}

	return value, nil
}

// Invalidate removes cached entries. A nil client is a no-op.
func Invalidate(ctx context.Context, keys ...string) {
	c := GetClient()
	if c == nil || len(keys) == 0 {
		return
	}
	c.Del(ctx, keys...)
}
