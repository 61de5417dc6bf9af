package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"governance-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransferRepo implements ports.TransferJournal on token_transfers.
type TransferRepo struct {
	pool Pool
}

// NewTransferRepo creates a new TransferRepo.
func NewTransferRepo(pool Pool) *TransferRepo {
	return &TransferRepo{pool: pool}
}

const transferColumns = `id, idempotency_key, from_account, to_account, amount, status, created_at, updated_at`

// Create journals a transfer. The unique index on idempotency_key turns a
// concurrent retry into domain.ErrDuplicateTransfer.
func (r *TransferRepo) Create(ctx context.Context, t *domain.Transfer) error {
	query := `INSERT INTO token_transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		t.ID, t.IdempotencyKey, t.FromAccount, t.ToAccount,
		t.Amount, string(t.Status), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateTransfer
		}
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// Get fetches a transfer by id.
func (r *TransferRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM token_transfers WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIdempotencyKey fetches a transfer by its scoped idempotency key.
func (r *TransferRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM token_transfers WHERE idempotency_key = $1`
	return r.getOne(ctx, query, key)
}

// UpdateStatus moves a transfer from one status to another. The WHERE clause
// on the current status makes the change a compare-and-set.
func (r *TransferRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.TransferStatus) error {
	query := `UPDATE token_transfers SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`

	tag, err := r.pool.Exec(ctx, query, string(to), id, string(from))
	if err != nil {
		return fmt.Errorf("update transfer status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM token_transfers WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check transfer: %w", err)
	}
	if !exists {
		return domain.ErrTransferNotFound
	}
	return domain.ErrTransferSettled
}

// ListPending returns PENDING transfers created before olderThan, oldest first.
func (r *TransferRepo) ListPending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM token_transfers
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC LIMIT $3`

	rows, err := r.pool.Query(ctx, query, string(domain.TransferStatusPending), olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending transfers: %w", err)
	}
	defer rows.Close()

	var transfers []domain.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		transfers = append(transfers, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfers: %w", err)
	}
	return transfers, nil
}

func (r *TransferRepo) getOne(ctx context.Context, query string, arg any) (*domain.Transfer, error) {
	t, err := scanTransfer(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	return t, nil
}

func scanTransfer(row pgx.Row) (*domain.Transfer, error) {
	var (
		t      domain.Transfer
		status string
	)
	if err := row.Scan(
		&t.ID, &t.IdempotencyKey, &t.FromAccount, &t.ToAccount,
		&t.Amount, &status, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.Status = domain.TransferStatus(status)
	return &t, nil
}
