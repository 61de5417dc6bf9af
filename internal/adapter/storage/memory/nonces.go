package memory

import (
	"context"
	"sync"
	"time"
)

// nonceSweepInterval bounds how often CheckAndSet scans for expired nonces.
const nonceSweepInterval = time.Minute

// NonceStore implements ports.NonceStore in memory. Expired nonces are
// swept from CheckAndSet at most once per nonceSweepInterval.
type NonceStore struct {
	mu        sync.Mutex
	nonces    map[string]time.Time
	nextSweep time.Time
	now       func() time.Time
}

// NewNonceStore creates an empty NonceStore.
func NewNonceStore() *NonceStore {
	return &NonceStore{
		nonces: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (s *NonceStore) CheckAndSet(_ context.Context, scope string, nonce string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := scope + ":" + nonce
	now := s.now()
	if !now.Before(s.nextSweep) {
		for k, exp := range s.nonces {
			if !now.Before(exp) {
				delete(s.nonces, k)
			}
		}
		s.nextSweep = now.Add(nonceSweepInterval)
	}
	if exp, ok := s.nonces[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.nonces[key] = now.Add(ttl)
	return true, nil
}

func (s *NonceStore) Release(_ context.Context, scope string, nonce string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nonces, scope+":"+nonce)
	return nil
}

// HealthCheck reports the in-memory store as always reachable.
type HealthCheck struct{}

func (HealthCheck) Ping(context.Context) error { return nil }
func (HealthCheck) Name() string               { return "memory" }
