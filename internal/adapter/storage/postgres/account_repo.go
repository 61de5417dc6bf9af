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

// AccountRepo implements ports.AccountStore on governance_accounts and
// token_transactions. History order is the insertion sequence.
type AccountRepo struct {
	pool Pool
	now  func() time.Time
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts an empty account.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO governance_accounts (id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query, a.ID, a.Balance, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountExists
	}
	return nil
}

// Get fetches an account and its full history.
func (r *AccountRepo) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `SELECT id, balance, created_at, updated_at FROM governance_accounts WHERE id = $1`

	a := &domain.Account{}
	err := r.pool.QueryRow(ctx, query, accountID).Scan(&a.ID, &a.Balance, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	history, err := r.history(ctx, accountID)
	if err != nil {
		return nil, err
	}
	a.History = history
	return a, nil
}

// AtomicUpdate applies entry in one database transaction. The guarded
// UPDATE runs first and holds the account row lock, so entries receive their
// seq in the order balances change. A replayed entry id conflicts on insert
// and the balance change rolls back with it.
func (r *AccountRepo) AtomicUpdate(ctx context.Context, accountID string, e domain.TokenTransaction) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	update := `UPDATE governance_accounts SET balance = balance + $2, updated_at = $3
		WHERE id = $1 AND balance + $2 >= 0 RETURNING balance`

	var balance int64
	if err := tx.QueryRow(ctx, update, accountID, e.Amount, r.now()).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, explainMiss(ctx, tx, accountID, e.ID)
		}
		return 0, fmt.Errorf("update balance: %w", err)
	}

	var reason *string
	if e.Reason != nil {
		s := string(*e.Reason)
		reason = &s
	}

	insert := `INSERT INTO token_transactions (id, account_id, kind, amount, counterparty, transfer_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (id) DO NOTHING`

	tag, err := tx.Exec(ctx, insert,
		e.ID, accountID, string(e.Kind), e.Amount,
		e.Counterparty, e.TransferID, reason, e.Timestamp,
	)
	if err != nil {
		return 0, fmt.Errorf("insert token transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, domain.ErrDuplicateEntry
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return balance, nil
}

// explainMiss classifies a guarded UPDATE that matched no row.
func explainMiss(ctx context.Context, tx pgx.Tx, accountID string, entryID uuid.UUID) error {
	query := `SELECT
		EXISTS (SELECT 1 FROM governance_accounts WHERE id = $1),
		EXISTS (SELECT 1 FROM token_transactions WHERE account_id = $1 AND id = $2)`

	var accountExists, applied bool
	if err := tx.QueryRow(ctx, query, accountID, entryID).Scan(&accountExists, &applied); err != nil {
		return fmt.Errorf("classify rejected update: %w", err)
	}
	switch {
	case !accountExists:
		return domain.ErrAccountNotFound
	case applied:
		return domain.ErrDuplicateEntry
	default:
		return domain.ErrInsufficientBalance
	}
}

// GetEntry fetches one history entry of the account.
func (r *AccountRepo) GetEntry(ctx context.Context, accountID string, entryID uuid.UUID) (*domain.TokenTransaction, error) {
	query := `SELECT ` + entryColumns + ` FROM token_transactions WHERE account_id = $1 AND id = $2`

	e, err := scanEntry(r.pool.QueryRow(ctx, query, accountID, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get token transaction: %w", err)
	}
	return &e, nil
}

const entryColumns = `id, kind, amount, counterparty, transfer_id, reason, created_at`

func (r *AccountRepo) history(ctx context.Context, accountID string) ([]domain.TokenTransaction, error) {
	query := `SELECT ` + entryColumns + ` FROM token_transactions WHERE account_id = $1 ORDER BY seq ASC`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list token transactions: %w", err)
	}
	defer rows.Close()

	history := []domain.TokenTransaction{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token transaction: %w", err)
		}
		history = append(history, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token transactions: %w", err)
	}
	return history, nil
}

func scanEntry(row pgx.Row) (domain.TokenTransaction, error) {
	var (
		e      domain.TokenTransaction
		kind   string
		reason *string
	)
	if err := row.Scan(&e.ID, &kind, &e.Amount, &e.Counterparty, &e.TransferID, &reason, &e.Timestamp); err != nil {
		return e, err
	}
	e.Kind = domain.TransactionKind(kind)
	if reason != nil {
		k := domain.AllocationKind(*reason)
		e.Reason = &k
	}
	return e, nil
}
