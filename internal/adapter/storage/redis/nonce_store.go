package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// NonceStore implements ports.NonceStore using Redis SET NX.
// The vote replay guard keeps one key per signature digest.
type NonceStore struct {
	client goredis.UniversalClient
	prefix string
}

// NewNonceStore creates a new Redis-backed nonce store.
func NewNonceStore(client goredis.UniversalClient) *NonceStore {
	return &NonceStore{
		client: client,
		prefix: keyPrefix + "nonce:",
	}
}

func (s *NonceStore) key(scope, nonce string) string {
	return s.prefix + scope + ":" + nonce
}

// CheckAndSet records nonce under scope unless it is already present.
// Returns true if the nonce is new, false if already used.
func (s *NonceStore) CheckAndSet(ctx context.Context, scope string, nonce string, ttl time.Duration) (bool, error) {
	result, err := s.client.SetArgs(ctx, s.key(scope, nonce), 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis nonce check: %w", err)
	}
	return result == "OK", nil
}

// Release deletes a nonce so the same value can be presented again.
func (s *NonceStore) Release(ctx context.Context, scope string, nonce string) error {
	if err := s.client.Del(ctx, s.key(scope, nonce)).Err(); err != nil {
		return fmt.Errorf("redis nonce release: %w", err)
	}
	return nil
}
