package memory

import (
	"context"
	"sync"

	"governance-ledger/internal/core/domain"
)

type receiptKey struct {
	proposalID string
	voter      string
}

// VoteReceiptStore implements ports.VoteReceiptStore in memory.
type VoteReceiptStore struct {
	mu       sync.Mutex
	receipts map[receiptKey]domain.VoteReceipt
}

// NewVoteReceiptStore creates an empty VoteReceiptStore.
func NewVoteReceiptStore() *VoteReceiptStore {
	return &VoteReceiptStore{receipts: make(map[receiptKey]domain.VoteReceipt)}
}

func (s *VoteReceiptStore) Claim(_ context.Context, r *domain.VoteReceipt) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := receiptKey{r.ProposalID, r.VoterAddress}
	if _, ok := s.receipts[k]; ok {
		return false, nil
	}
	s.receipts[k] = *r
	return true, nil
}

func (s *VoteReceiptStore) Release(_ context.Context, proposalID string, voterAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.receipts, receiptKey{proposalID, voterAddress})
	return nil
}
