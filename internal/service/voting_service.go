package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"governance-ledger/internal/core/domain"
	"governance-ledger/internal/core/ports"
	"governance-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

const signatureScope = "vote-sig"

// VotingOptions configures vote admission.
type VotingOptions struct {
	// RequireBoundMessage demands the signed message be vote:<proposal_id>:<direction>.
	RequireBoundMessage bool
	ReplayTTL           time.Duration
}

// VotingServiceImpl implements ports.VotingService.
type VotingServiceImpl struct {
	authorizer ports.VoteAuthorizer
	tally      ports.TallyService
	proposals  ports.ProposalStore
	receipts   ports.VoteReceiptStore
	replay     ports.NonceStore // optional
	events     ports.EventPublisher
	opts       VotingOptions
	now        func() time.Time
	log        zerolog.Logger
}

// NewVotingService creates a new VotingServiceImpl. replay may be nil.
func NewVotingService(
	authorizer ports.VoteAuthorizer,
	tally ports.TallyService,
	proposals ports.ProposalStore,
	receipts ports.VoteReceiptStore,
	replay ports.NonceStore,
	events ports.EventPublisher,
	opts VotingOptions,
	log zerolog.Logger,
) *VotingServiceImpl {
	return &VotingServiceImpl{
		authorizer: authorizer,
		tally:      tally,
		proposals:  proposals,
		receipts:   receipts,
		replay:     replay,
		events:     events,
		opts:       opts,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log,
	}
}

// CastVote takes a vote from RECEIVED to COUNTED or rejects it.
// A voter is counted at most once per proposal.
func (s *VotingServiceImpl) CastVote(ctx context.Context, vote domain.VoteCast) (*ports.VoteResult, error) {
	voter := domain.NormalizeAddress(vote.VoterAddress)
	if voter == "" || vote.ProposalID == "" || vote.Message == "" || strings.TrimSpace(vote.Signature) == "" {
		return nil, apperror.Validation("voter_address, proposal_id, vote_direction, message and signature are required")
	}
	if !vote.Direction.Valid() {
		return nil, apperror.ErrInvalidDirection()
	}

	if !s.authorizer.Verify(vote.VoterAddress, vote.Message, vote.Signature) {
		s.logStatus(vote, voter, domain.VoteStatusRejected).Msg("vote signature rejected")
		return nil, apperror.ErrInvalidSignature()
	}
	if s.opts.RequireBoundMessage && vote.Message != domain.CanonicalVoteMessage(vote.ProposalID, vote.Direction) {
		s.logStatus(vote, voter, domain.VoteStatusRejected).Msg("vote message not bound to proposal and direction")
		return nil, apperror.ErrUnboundMessage()
	}

	proposal, err := s.proposals.Get(ctx, vote.ProposalID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("get proposal: %w", err))
	}
	if proposal == nil {
		return nil, apperror.ErrNotFound("proposal")
	}
	if !proposal.AllowsDirection(vote.Direction) {
		return nil, apperror.ErrInvalidDirection()
	}

	digest := domain.SignatureDigest(vote.Signature)
	guarded, err := s.guardSignature(ctx, digest)
	if err != nil {
		return nil, err
	}

	receipt := &domain.VoteReceipt{
		ProposalID:   vote.ProposalID,
		VoterAddress: voter,
		Direction:    vote.Direction,
		CastAt:       s.now(),
	}
	claimed, err := s.receipts.Claim(ctx, receipt)
	if err != nil {
		s.releaseSignature(ctx, guarded, digest)
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("claim vote receipt: %w", err))
	}
	if !claimed {
		return nil, apperror.ErrAlreadyVoted()
	}

	s.logStatus(vote, voter, domain.VoteStatusAuthorized).Msg("vote authorized")

	tally, err := s.tally.RecordVote(ctx, vote.ProposalID, vote.Direction)
	if err != nil {
		if relErr := s.receipts.Release(ctx, vote.ProposalID, voter); relErr != nil {
			s.log.Error().Err(relErr).
				Str("proposal_id", vote.ProposalID).
				Str("voter", voter).
				Msg("failed to release vote receipt after tally failure")
		}
		s.releaseSignature(ctx, guarded, digest)
		return nil, err
	}

	if err := s.events.Publish(ctx, domain.LedgerEvent{
		Type:       domain.EventVoteCounted,
		ID:         digest,
		AccountID:  voter,
		ProposalID: vote.ProposalID,
		Direction:  string(vote.Direction),
		OccurredAt: receipt.CastAt,
	}); err != nil {
		s.log.Warn().Err(err).Str("proposal_id", vote.ProposalID).Msg("failed to publish vote event")
	}

	s.logStatus(vote, voter, domain.VoteStatusCounted).Msg("vote counted")

	return &ports.VoteResult{
		ProposalID:   vote.ProposalID,
		VoterAddress: voter,
		Direction:    vote.Direction,
		Status:       domain.VoteStatusCounted,
		Tally:        tally,
	}, nil
}

// guardSignature marks the signature as used. Redis errors degrade to the
// receipt guard alone. Returns whether the signature was recorded.
func (s *VotingServiceImpl) guardSignature(ctx context.Context, digest string) (bool, error) {
	if s.replay == nil {
		return false, nil
	}

	fresh, err := s.replay.CheckAndSet(ctx, signatureScope, digest, s.opts.ReplayTTL)
	if err != nil {
		s.log.Warn().Err(err).Msg("signature replay guard unavailable, relying on vote receipts")
		return false, nil
	}
	if !fresh {
		return false, apperror.ErrSignatureReplayed()
	}
	return true, nil
}

func (s *VotingServiceImpl) releaseSignature(ctx context.Context, guarded bool, digest string) {
	if !guarded {
		return
	}
	if err := s.replay.Release(ctx, signatureScope, digest); err != nil {
		s.log.Warn().Err(err).Msg("failed to release signature replay guard")
	}
}

func (s *VotingServiceImpl) logStatus(vote domain.VoteCast, voter string, status domain.VoteStatus) *zerolog.Event {
	return s.log.Info().
		Str("proposal_id", vote.ProposalID).
		Str("voter", voter).
		Str("direction", string(vote.Direction)).
		Str("status", string(status))
}
