package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Keyed is a redis-backed key/value cache with explicit invalidation. Callers
// invalidate a key in the same flow that mutates the row the value was derived
// from; there is no implicit signal-driven eviction.
type Keyed struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewKeyed constructs a Keyed cache. TTL bounds staleness when a caller
// forgets to invalidate; zero means no expiry.
func NewKeyed(client *redis.Client, prefix string, ttl time.Duration) *Keyed {
	return &Keyed{client: client, prefix: prefix, ttl: ttl}
}

func (k *Keyed) key(key string) string {
	return k.prefix + key
}

// Get returns the cached value and whether it was present.
func (k *Keyed) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := k.client.Get(ctx, k.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

// Set stores a value under the key.
func (k *Keyed) Set(ctx context.Context, key, value string) error {
	return k.client.Set(ctx, k.key(key), value, k.ttl).Err()
}

// Invalidate removes the key.
func (k *Keyed) Invalidate(ctx context.Context, key string) error {
	return k.client.Del(ctx, k.key(key)).Err()
}
