package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"governance-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// TransferJournal implements ports.TransferJournal in memory.
type TransferJournal struct {
	mu        sync.RWMutex
	transfers map[uuid.UUID]*domain.Transfer
	byKey     map[string]uuid.UUID
}

// NewTransferJournal creates an empty TransferJournal.
func NewTransferJournal() *TransferJournal {
	return &TransferJournal{
		transfers: make(map[uuid.UUID]*domain.Transfer),
		byKey:     make(map[string]uuid.UUID),
	}
}

func (j *TransferJournal) Create(_ context.Context, t *domain.Transfer) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if t.IdempotencyKey != nil {
		if _, ok := j.byKey[*t.IdempotencyKey]; ok {
			return domain.ErrDuplicateTransfer
		}
		j.byKey[*t.IdempotencyKey] = t.ID
	}
	c := *t
	j.transfers[t.ID] = &c
	return nil
}

func (j *TransferJournal) Get(_ context.Context, id uuid.UUID) (*domain.Transfer, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	t, ok := j.transfers[id]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (j *TransferJournal) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transfer, error) {
	j.mu.RLock()
	id, ok := j.byKey[key]
	j.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return j.Get(ctx, id)
}

func (j *TransferJournal) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.TransferStatus) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	t, ok := j.transfers[id]
	if !ok {
		return domain.ErrTransferNotFound
	}
	if t.Status != from {
		return domain.ErrTransferSettled
	}
	t.Status = to
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (j *TransferJournal) ListPending(_ context.Context, olderThan time.Time, limit int) ([]domain.Transfer, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var out []domain.Transfer
	for _, t := range j.transfers {
		if t.Status == domain.TransferStatusPending && t.CreatedAt.Before(olderThan) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
