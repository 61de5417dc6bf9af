package postgres

import (
	"context"
	"errors"
	"fmt"

	"governance-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MemberRepo implements ports.MemberRepository.
type MemberRepo struct {
	pool Pool
}

// NewMemberRepo creates a new MemberRepo.
func NewMemberRepo(pool Pool) *MemberRepo {
	return &MemberRepo{pool: pool}
}

const memberColumns = `id, email, password_hash, wallet_address, role, created_at, updated_at`

// Create inserts a new member into the database.
func (r *MemberRepo) Create(ctx context.Context, m *domain.Member) error {
	query := `INSERT INTO members (` + memberColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		m.ID, m.Email, m.PasswordHash, m.WalletAddress,
		string(m.Role), m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailExists
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// GetByID fetches a member by its UUID.
func (r *MemberRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByEmail fetches a member by normalized e-mail.
func (r *MemberRepo) GetByEmail(ctx context.Context, email string) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE email = $1`
	return r.getOne(ctx, query, email)
}

func (r *MemberRepo) getOne(ctx context.Context, query string, arg any) (*domain.Member, error) {
	var (
		m    domain.Member
		role string
	)
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&m.ID, &m.Email, &m.PasswordHash, &m.WalletAddress,
		&role, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	m.Role = domain.MemberRole(role)
	return &m, nil
}
