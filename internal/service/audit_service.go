package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"governance-ledger/internal/core/domain"
	"governance-ledger/internal/core/ports"
	"governance-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	auditWriteTimeout = 5 * time.Second

	defaultTrailDays = 30
	maxTrailDays     = 365
)

var errNoAuditStore = errors.New("audit store not configured")

type auditService struct {
	repo ports.AuditRepository
	now  func() time.Time
	log  zerolog.Logger
}

// NewAuditService creates a new audit service.
// If repo is nil, audit logs are only written to the logger and the read
// paths report the store as unavailable.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
		log:  log,
	}
}

// Log records an audit entry asynchronously (fire-and-forget).
func (s *auditService) Log(_ context.Context, entry *domain.AuditLog) {
	go func() {
		ev := s.log.Info().
			Str("action", string(entry.Action)).
			Str("resource_type", entry.ResourceType).
			Str("resource_id", entry.ResourceID).
			Str("ip", entry.IPAddress)
		if entry.MemberID != nil {
			ev = ev.Str("member_id", entry.MemberID.String())
		}
		ev.Msg("audit")

		if s.repo == nil {
			return
		}

		// The request context is gone by the time this runs.
		ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		defer cancel()

		if err := s.repo.Create(ctx, entry); err != nil {
			s.log.Warn().Err(err).Str("action", string(entry.Action)).Msg("failed to persist audit log")
		}
	}()
}

func (s *auditService) Trail(ctx context.Context, memberID uuid.UUID, days int) (*ports.AuditTrail, error) {
	if days <= 0 {
		days = defaultTrailDays
	}
	if days > maxTrailDays {
		return nil, apperror.Validation(fmt.Sprintf("days must be at most %d", maxTrailDays))
	}
	if s.repo == nil {
		return nil, apperror.ErrStoreUnavailable(errNoAuditStore)
	}

	since := s.now().AddDate(0, 0, -days)
	logs, err := s.repo.ListByMember(ctx, memberID, since)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("list audit logs: %w", err))
	}
	if logs == nil {
		logs = []domain.AuditLog{}
	}
	return &ports.AuditTrail{MemberID: memberID, Days: days, Logs: logs, Total: len(logs)}, nil
}

func (s *auditService) SuspiciousActivity(ctx context.Context, memberID *uuid.UUID) ([]domain.ActivitySummary, error) {
	if s.repo == nil {
		return nil, apperror.ErrStoreUnavailable(errNoAuditStore)
	}
	out, err := s.repo.ActivityByAction(ctx, memberID, domain.SuspiciousActivityThreshold)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("aggregate audit logs: %w", err))
	}
	if out == nil {
		out = []domain.ActivitySummary{}
	}
	return out, nil
}
