// Package memory provides process-local stores for development and tests.
// Every operation takes a mutex, so each call is atomic within one process.
package memory

import (
	"context"
	"sync"
	"time"

	"governance-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// AccountStore implements ports.AccountStore in memory.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
	entries  map[string]map[uuid.UUID]domain.TokenTransaction
	now      func() time.Time
}

// NewAccountStore creates an empty AccountStore.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[string]*domain.Account),
		entries:  make(map[string]map[uuid.UUID]domain.TokenTransaction),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *AccountStore) Create(_ context.Context, a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.ID]; ok {
		return domain.ErrAccountExists
	}
	s.accounts[a.ID] = copyAccount(a)
	s.entries[a.ID] = make(map[uuid.UUID]domain.TokenTransaction)
	for _, e := range a.History {
		s.entries[a.ID][e.ID] = e
	}
	return nil
}

func (s *AccountStore) Get(_ context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return nil, nil
	}
	return copyAccount(a), nil
}

func (s *AccountStore) AtomicUpdate(_ context.Context, accountID string, e domain.TokenTransaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return 0, domain.ErrAccountNotFound
	}
	if _, dup := s.entries[accountID][e.ID]; dup {
		return 0, domain.ErrDuplicateEntry
	}
	if a.Balance+e.Amount < 0 {
		return 0, domain.ErrInsufficientBalance
	}
	a.Balance += e.Amount
	a.History = append(a.History, e)
	a.UpdatedAt = s.now()
	s.entries[accountID][e.ID] = e
	return a.Balance, nil
}

func (s *AccountStore) GetEntry(_ context.Context, accountID string, entryID uuid.UUID) (*domain.TokenTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[accountID][entryID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func copyAccount(a *domain.Account) *domain.Account {
	c := *a
	c.History = append([]domain.TokenTransaction{}, a.History...)
	return &c
}
