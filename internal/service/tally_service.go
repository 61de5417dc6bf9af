package service

import (
	"context"
	"errors"
	"fmt"

	"governance-ledger/internal/core/domain"
	"governance-ledger/internal/core/ports"
	"governance-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// TallyServiceImpl implements ports.TallyService.
type TallyServiceImpl struct {
	proposals ports.ProposalStore
	log       zerolog.Logger
}

// NewTallyService creates a new TallyServiceImpl.
func NewTallyService(proposals ports.ProposalStore, log zerolog.Logger) *TallyServiceImpl {
	return &TallyServiceImpl{proposals: proposals, log: log}
}

// RecordVote increments the direction counter and total_participants in one update.
// Callers must have authorized and deduplicated the vote.
func (s *TallyServiceImpl) RecordVote(ctx context.Context, proposalID string, direction domain.VoteDirection) (*domain.Tally, error) {
	if proposalID == "" {
		return nil, apperror.Validation("proposal_id is required")
	}
	if !direction.Valid() {
		return nil, apperror.ErrInvalidDirection()
	}

	tally, err := s.proposals.IncrementVote(ctx, proposalID, direction)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProposalNotFound):
			return nil, apperror.ErrNotFound("proposal")
		case errors.Is(err, domain.ErrDirectionNotAllowed):
			return nil, apperror.ErrInvalidDirection()
		default:
			return nil, apperror.ErrStoreUnavailable(fmt.Errorf("increment vote: %w", err))
		}
	}

	s.log.Debug().
		Str("proposal_id", proposalID).
		Str("direction", string(direction)).
		Int64("total_participants", tally.TotalParticipants).
		Msg("vote tallied")

	return tally, nil
}
