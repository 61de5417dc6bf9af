package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// IdempotencyCache keeps serialized transfer outcomes under their scoped
// idempotency key. The first outcome written for a key is the one replayed.
type IdempotencyCache struct {
	client goredis.UniversalClient
}

func NewIdempotencyCache(client goredis.UniversalClient) *IdempotencyCache {
	return &IdempotencyCache{client: client}
}

func (c *IdempotencyCache) key(k string) string {
	return keyPrefix + "idempotency:" + k
}

// Get returns the stored outcome, or nil when none is cached.
func (c *IdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	switch {
	case errors.Is(err, goredis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("idempotency get %q: %w", key, err)
	}
	return val, nil
}

// Set records an outcome unless one is already stored for key.
func (c *IdempotencyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.SetNX(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency set %q: %w", key, err)
	}
	return nil
}
