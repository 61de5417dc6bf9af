package postgres

import (
	"context"
	"fmt"
	"time"

	"governance-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct {
	pool Pool
}

// NewAuditRepo creates a PostgreSQL-backed audit repository.
func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

func (r *AuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, member_id, action, resource_type, resource_id, details, ip_address, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		log.ID, log.MemberID, string(log.Action), log.ResourceType,
		log.ResourceID, log.Details, log.IPAddress, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ListByMember returns the member's entries since the given time, newest first.
func (r *AuditRepo) ListByMember(ctx context.Context, memberID uuid.UUID, since time.Time) ([]domain.AuditLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, member_id, action, resource_type, COALESCE(resource_id, ''),
		        COALESCE(details, ''), COALESCE(ip_address, ''), created_at
		 FROM audit_logs
		 WHERE member_id = $1 AND created_at >= $2
		 ORDER BY created_at DESC`,
		memberID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.AuditLog
	for rows.Next() {
		var (
			l      domain.AuditLog
			action string
		)
		if err := rows.Scan(&l.ID, &l.MemberID, &action, &l.ResourceType, &l.ResourceID,
			&l.Details, &l.IPAddress, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		l.Action = domain.AuditAction(action)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit logs: %w", err)
	}
	return logs, nil
}

// ActivityByAction counts entries per action, optionally for one member,
// keeping actions with more than minEvents entries.
func (r *AuditRepo) ActivityByAction(ctx context.Context, memberID *uuid.UUID, minEvents int64) ([]domain.ActivitySummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT action, COUNT(*) AS total_events,
		        COALESCE(array_agg(DISTINCT member_id::text) FILTER (WHERE member_id IS NOT NULL), '{}')
		 FROM audit_logs
		 WHERE $1::uuid IS NULL OR member_id = $1
		 GROUP BY action
		 HAVING COUNT(*) > $2
		 ORDER BY total_events DESC, action ASC`,
		memberID, minEvents,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate audit logs: %w", err)
	}
	defer rows.Close()

	var out []domain.ActivitySummary
	for rows.Next() {
		var (
			action  string
			total   int64
			members []string
		)
		if err := rows.Scan(&action, &total, &members); err != nil {
			return nil, fmt.Errorf("scan activity summary: %w", err)
		}
		ids := make([]uuid.UUID, 0, len(members))
		for _, m := range members {
			id, err := uuid.Parse(m)
			if err != nil {
				return nil, fmt.Errorf("parse member id %q: %w", m, err)
			}
			ids = append(ids, id)
		}
		out = append(out, domain.ActivitySummary{Action: domain.AuditAction(action), TotalEvents: total, MemberIDs: ids})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity summaries: %w", err)
	}
	return out, nil
}
