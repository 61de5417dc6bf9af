package postgres

import (
	"context"
	"errors"
	"fmt"

	"governance-ledger/internal/core/domain"
	"governance-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// ProposalRepo implements ports.ProposalStore. Each configured direction is a
// counter row in proposal_directions; the participant total lives on the
// proposal row.
type ProposalRepo struct {
	pool Pool
}

// NewProposalRepo creates a new ProposalRepo.
func NewProposalRepo(pool Pool) *ProposalRepo {
	return &ProposalRepo{pool: pool}
}

// Create inserts the proposal and one zeroed counter per direction.
func (r *ProposalRepo) Create(ctx context.Context, p *domain.Proposal) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO proposals (id, title, description, total_participants, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Title, p.Description, p.TotalParticipants, p.CreatedBy, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert proposal: %w", err)
	}

	for i, d := range p.Directions {
		_, err := tx.Exec(ctx,
			`INSERT INTO proposal_directions (proposal_id, direction, position, votes) VALUES ($1, $2, $3, $4)`,
			p.ID, string(d), i, p.Votes[d],
		)
		if err != nil {
			return fmt.Errorf("insert proposal direction %s: %w", d, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Get fetches a proposal with its counters.
func (r *ProposalRepo) Get(ctx context.Context, id string) (*domain.Proposal, error) {
	p := &domain.Proposal{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, description, total_participants, created_by, created_at FROM proposals WHERE id = $1`, id,
	).Scan(&p.ID, &p.Title, &p.Description, &p.TotalParticipants, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get proposal: %w", err)
	}

	if err := r.loadCounters(ctx, r.pool, []*domain.Proposal{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns a page of proposals, newest first, with the total count.
func (r *ProposalRepo) List(ctx context.Context, params ports.ProposalListParams) ([]domain.Proposal, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM proposals`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count proposals: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, description, total_participants, created_by, created_at
		 FROM proposals ORDER BY created_at DESC, id ASC LIMIT $1 OFFSET $2`,
		params.PageSize, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list proposals: %w", err)
	}

	var proposals []domain.Proposal
	for rows.Next() {
		var p domain.Proposal
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.TotalParticipants, &p.CreatedBy, &p.CreatedAt); err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("scan proposal: %w", err)
		}
		proposals = append(proposals, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate proposals: %w", err)
	}

	if len(proposals) == 0 {
		return []domain.Proposal{}, total, nil
	}

	ptrs := make([]*domain.Proposal, len(proposals))
	for i := range proposals {
		ptrs[i] = &proposals[i]
	}
	if err := r.loadCounters(ctx, r.pool, ptrs); err != nil {
		return nil, 0, err
	}
	return proposals, total, nil
}

// IncrementVote bumps the direction counter and total_participants in one
// database transaction and returns the counters as committed.
func (r *ProposalRepo) IncrementVote(ctx context.Context, id string, direction domain.VoteDirection) (*domain.Tally, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE proposal_directions SET votes = votes + 1 WHERE proposal_id = $1 AND direction = $2`,
		id, string(direction),
	)
	if err != nil {
		return nil, fmt.Errorf("increment direction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM proposals WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check proposal: %w", err)
		}
		if !exists {
			return nil, domain.ErrProposalNotFound
		}
		return nil, domain.ErrDirectionNotAllowed
	}

	tally := &domain.Tally{ProposalID: id}
	if err := tx.QueryRow(ctx,
		`UPDATE proposals SET total_participants = total_participants + 1 WHERE id = $1 RETURNING total_participants`, id,
	).Scan(&tally.TotalParticipants); err != nil {
		return nil, fmt.Errorf("increment participants: %w", err)
	}

	p := &domain.Proposal{ID: id}
	if err := r.loadCounters(ctx, tx, []*domain.Proposal{p}); err != nil {
		return nil, err
	}
	tally.Counts = p.Votes

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return tally, nil
}

// Stats aggregates proposal and vote totals.
func (r *ProposalRepo) Stats(ctx context.Context) (*ports.GovernanceStats, error) {
	stats := &ports.GovernanceStats{ByDirection: map[domain.VoteDirection]int64{}}

	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_participants), 0) FROM proposals`,
	).Scan(&stats.TotalProposals, &stats.TotalVotes); err != nil {
		return nil, fmt.Errorf("proposal totals: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT direction, COALESCE(SUM(votes), 0) FROM proposal_directions GROUP BY direction`)
	if err != nil {
		return nil, fmt.Errorf("direction totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			dir   string
			votes int64
		)
		if err := rows.Scan(&dir, &votes); err != nil {
			return nil, fmt.Errorf("scan direction total: %w", err)
		}
		stats.ByDirection[domain.VoteDirection(dir)] = votes
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate direction totals: %w", err)
	}
	return stats, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *ProposalRepo) loadCounters(ctx context.Context, q querier, proposals []*domain.Proposal) error {
	byID := make(map[string]*domain.Proposal, len(proposals))
	ids := make([]string, 0, len(proposals))
	for _, p := range proposals {
		p.Directions = []domain.VoteDirection{}
		p.Votes = map[domain.VoteDirection]int64{}
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	rows, err := q.Query(ctx,
		`SELECT proposal_id, direction, votes FROM proposal_directions
		 WHERE proposal_id = ANY($1) ORDER BY proposal_id, position`, ids)
	if err != nil {
		return fmt.Errorf("load proposal counters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pid, dir string
			votes    int64
		)
		if err := rows.Scan(&pid, &dir, &votes); err != nil {
			return fmt.Errorf("scan proposal counter: %w", err)
		}
		if p, ok := byID[pid]; ok {
			d := domain.VoteDirection(dir)
			p.Directions = append(p.Directions, d)
			p.Votes[d] = votes
		}
	}
	return rows.Err()
}
