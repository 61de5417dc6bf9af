package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"governance-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// MemberRepository implements ports.MemberRepository in memory.
type MemberRepository struct {
	mu      sync.RWMutex
	members map[uuid.UUID]*domain.Member
	byEmail map[string]uuid.UUID
}

// NewMemberRepository creates an empty MemberRepository.
func NewMemberRepository() *MemberRepository {
	return &MemberRepository{
		members: make(map[uuid.UUID]*domain.Member),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *MemberRepository) Create(_ context.Context, m *domain.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[m.Email]; ok {
		return domain.ErrEmailExists
	}
	c := *m
	r.members[m.ID] = &c
	r.byEmail[m.Email] = m.ID
	return nil
}

func (r *MemberRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[id]
	if !ok {
		return nil, nil
	}
	c := *m
	return &c, nil
}

func (r *MemberRepository) GetByEmail(ctx context.Context, email string) (*domain.Member, error) {
	r.mu.RLock()
	id, ok := r.byEmail[email]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

// AuditRepository implements ports.AuditRepository in memory.
type AuditRepository struct {
	mu   sync.Mutex
	logs []domain.AuditLog
}

// NewAuditRepository creates an empty AuditRepository.
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) Create(_ context.Context, log *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *log)
	return nil
}

// Logs returns a snapshot of the recorded entries.
func (r *AuditRepository) Logs() []domain.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuditLog(nil), r.logs...)
}

func (r *AuditRepository) ListByMember(_ context.Context, memberID uuid.UUID, since time.Time) ([]domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.AuditLog
	for _, l := range r.logs {
		if l.MemberID != nil && *l.MemberID == memberID && !l.CreatedAt.Before(since) {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

func (r *AuditRepository) ActivityByAction(_ context.Context, memberID *uuid.UUID, minEvents int64) ([]domain.ActivitySummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	groups := make(map[domain.AuditAction]*domain.ActivitySummary)
	seen := make(map[domain.AuditAction]map[uuid.UUID]bool)
	for _, l := range r.logs {
		if memberID != nil && (l.MemberID == nil || *l.MemberID != *memberID) {
			continue
		}
		g, ok := groups[l.Action]
		if !ok {
			g = &domain.ActivitySummary{Action: l.Action, MemberIDs: []uuid.UUID{}}
			groups[l.Action] = g
			seen[l.Action] = make(map[uuid.UUID]bool)
		}
		g.TotalEvents++
		if l.MemberID != nil && !seen[l.Action][*l.MemberID] {
			seen[l.Action][*l.MemberID] = true
			g.MemberIDs = append(g.MemberIDs, *l.MemberID)
		}
	}

	var out []domain.ActivitySummary
	for _, g := range groups {
		if g.TotalEvents > minEvents {
			sort.Slice(g.MemberIDs, func(a, b int) bool { return g.MemberIDs[a].String() < g.MemberIDs[b].String() })
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].TotalEvents != out[b].TotalEvents {
			return out[a].TotalEvents > out[b].TotalEvents
		}
		return out[a].Action < out[b].Action
	})
	return out, nil
}
