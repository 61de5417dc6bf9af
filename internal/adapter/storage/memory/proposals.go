package memory

import (
	"context"
	"sort"
	"sync"

	"governance-ledger/internal/core/domain"
	"governance-ledger/internal/core/ports"
)

// ProposalStore implements ports.ProposalStore in memory.
type ProposalStore struct {
	mu        sync.RWMutex
	proposals map[string]*domain.Proposal
}

// NewProposalStore creates an empty ProposalStore.
func NewProposalStore() *ProposalStore {
	return &ProposalStore{proposals: make(map[string]*domain.Proposal)}
}

func (s *ProposalStore) Create(_ context.Context, p *domain.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals[p.ID] = copyProposal(p)
	return nil
}

func (s *ProposalStore) Get(_ context.Context, id string) (*domain.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.proposals[id]
	if !ok {
		return nil, nil
	}
	return copyProposal(p), nil
}

func (s *ProposalStore) List(_ context.Context, params ports.ProposalListParams) ([]domain.Proposal, int64, error) {
	s.mu.RLock()
	all := make([]domain.Proposal, 0, len(s.proposals))
	for _, p := range s.proposals {
		all = append(all, *copyProposal(p))
	}
	s.mu.RUnlock()

	sort.Slice(all, func(a, b int) bool {
		if all[a].CreatedAt.Equal(all[b].CreatedAt) {
			return all[a].ID < all[b].ID
		}
		return all[a].CreatedAt.After(all[b].CreatedAt)
	})

	total := int64(len(all))
	start := (params.Page - 1) * params.PageSize
	if start < 0 || start >= len(all) {
		return []domain.Proposal{}, total, nil
	}
	end := start + params.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (s *ProposalStore) IncrementVote(_ context.Context, id string, direction domain.VoteDirection) (*domain.Tally, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[id]
	if !ok {
		return nil, domain.ErrProposalNotFound
	}
	if !p.AllowsDirection(direction) {
		return nil, domain.ErrDirectionNotAllowed
	}
	p.Votes[direction]++
	p.TotalParticipants++
	return p.Tally(), nil
}

func (s *ProposalStore) Stats(_ context.Context) (*ports.GovernanceStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &ports.GovernanceStats{ByDirection: map[domain.VoteDirection]int64{}}
	for _, p := range s.proposals {
		stats.TotalProposals++
		stats.TotalVotes += p.TotalParticipants
		for d, n := range p.Votes {
			stats.ByDirection[d] += n
		}
	}
	return stats, nil
}

func copyProposal(p *domain.Proposal) *domain.Proposal {
	c := *p
	c.Directions = append([]domain.VoteDirection{}, p.Directions...)
	c.Votes = make(map[domain.VoteDirection]int64, len(p.Votes))
	for k, v := range p.Votes {
		c.Votes[k] = v
	}
	return &c
}
