package service

import (
	"context"
	"fmt"

	"governance-ledger/internal/core/domain"
	"governance-ledger/internal/core/ports"
	"governance-ledger/pkg/apperror"
)

// reportingService implements ports.ReportingService.
type reportingService struct {
	proposals ports.ProposalStore
}

// NewReportingService creates a new reporting service.
func NewReportingService(proposals ports.ProposalStore) ports.ReportingService {
	return &reportingService{proposals: proposals}
}

// GetAnalytics returns proposal and vote totals across the organization.
func (s *reportingService) GetAnalytics(ctx context.Context) (*ports.GovernanceStats, error) {
	stats, err := s.proposals.Stats(ctx)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("proposal stats: %w", err))
	}
	if stats.ByDirection == nil {
		stats.ByDirection = map[domain.VoteDirection]int64{}
	}
	return stats, nil
}
