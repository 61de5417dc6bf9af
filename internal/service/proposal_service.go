package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"governance-ledger/internal/core/domain"
	"governance-ledger/internal/core/ports"
	"governance-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	maxTitleLen     = 200
	maxDirections   = 16
	defaultPageSize = 20
	maxPageSize     = 100
)

// ProposalServiceImpl implements ports.ProposalService.
type ProposalServiceImpl struct {
	proposals         ports.ProposalStore
	defaultDirections []domain.VoteDirection
	log               zerolog.Logger
}

// NewProposalService creates a new ProposalServiceImpl.
// defaultDirections applies to proposals created without explicit directions.
func NewProposalService(proposals ports.ProposalStore, defaultDirections []string, log zerolog.Logger) (*ProposalServiceImpl, error) {
	dirs, err := parseDirections(defaultDirections)
	if err != nil {
		return nil, fmt.Errorf("default directions: %w", err)
	}
	if len(dirs) == 0 {
		dirs = domain.DefaultVoteDirections()
	}
	return &ProposalServiceImpl{proposals: proposals, defaultDirections: dirs, log: log}, nil
}

// Create stores a new proposal with zeroed counters.
func (s *ProposalServiceImpl) Create(ctx context.Context, req ports.CreateProposalRequest) (*domain.Proposal, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperror.Validation("title is required")
	}
	if len(title) > maxTitleLen {
		return nil, apperror.Validation(fmt.Sprintf("title must be at most %d characters", maxTitleLen))
	}

	dirs := s.defaultDirections
	if len(req.Directions) > 0 {
		parsed, err := parseDirections(req.Directions)
		if err != nil {
			return nil, apperror.Validation(err.Error())
		}
		dirs = parsed
	}

	votes := make(map[domain.VoteDirection]int64, len(dirs))
	for _, d := range dirs {
		votes[d] = 0
	}

	proposal := &domain.Proposal{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Directions:  append([]domain.VoteDirection(nil), dirs...),
		Votes:       votes,
		CreatedBy:   req.CreatedBy.String(),
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.proposals.Create(ctx, proposal); err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("create proposal: %w", err))
	}

	s.log.Info().Str("proposal_id", proposal.ID).Str("created_by", proposal.CreatedBy).Msg("proposal created")
	return proposal, nil
}

// Get returns a proposal with its current counters.
func (s *ProposalServiceImpl) Get(ctx context.Context, id string) (*domain.Proposal, error) {
	proposal, err := s.proposals.Get(ctx, id)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("get proposal: %w", err))
	}
	if proposal == nil {
		return nil, apperror.ErrNotFound("proposal")
	}
	return proposal, nil
}

// List returns a page of proposals, newest first, and the total count.
func (s *ProposalServiceImpl) List(ctx context.Context, params ports.ProposalListParams) ([]domain.Proposal, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}

	proposals, total, err := s.proposals.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrStoreUnavailable(fmt.Errorf("list proposals: %w", err))
	}
	return proposals, total, nil
}

func parseDirections(raw []string) ([]domain.VoteDirection, error) {
	if len(raw) > maxDirections {
		return nil, fmt.Errorf("at most %d directions allowed", maxDirections)
	}

	seen := make(map[domain.VoteDirection]struct{}, len(raw))
	dirs := make([]domain.VoteDirection, 0, len(raw))
	for _, r := range raw {
		d := domain.VoteDirection(strings.TrimSpace(r))
		if !d.Valid() {
			return nil, fmt.Errorf("invalid direction %q", r)
		}
		if _, dup := seen[d]; dup {
			return nil, fmt.Errorf("duplicate direction %q", r)
		}
		seen[d] = struct{}{}
		dirs = append(dirs, d)
	}
	return dirs, nil
}
