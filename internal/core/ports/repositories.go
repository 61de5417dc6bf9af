package ports

import (
	"context"
	"time"

	"governance-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// AccountStore persists token accounts. Every balance change goes through
// AtomicUpdate, which applies the delta and appends the entry as one
// indivisible operation on a single account.
type AccountStore interface {
	// Create stores a new account. Returns domain.ErrAccountExists if the id is taken.
	Create(ctx context.Context, account *domain.Account) error
	// Get returns the account with its full history, or nil if absent.
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	// AtomicUpdate adds entry.Amount to the balance and appends entry.
	// It fails with domain.ErrAccountNotFound, domain.ErrInsufficientBalance
	// (the result would be negative) or domain.ErrDuplicateEntry (entry.ID
	// already applied) without any partial effect.
	AtomicUpdate(ctx context.Context, accountID string, entry domain.TokenTransaction) (int64, error)
	// GetEntry returns the history entry with entryID, or nil if the account
	// has none.
	GetEntry(ctx context.Context, accountID string, entryID uuid.UUID) (*domain.TokenTransaction, error)
}

// TransferJournal records transfers before their legs are applied.
type TransferJournal interface {
	// Create stores a PENDING transfer. Returns domain.ErrDuplicateTransfer
	// if the idempotency key is already journaled.
	Create(ctx context.Context, transfer *domain.Transfer) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Transfer, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transfer, error)
	// UpdateStatus moves a transfer from status from to status to. It fails
	// with domain.ErrTransferNotFound, or domain.ErrTransferSettled when the
	// stored status is no longer from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.TransferStatus) error
	// ListPending returns PENDING transfers created before olderThan, oldest first.
	ListPending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Transfer, error)
}

// ProposalStore persists proposals and their vote counters.
type ProposalStore interface {
	Create(ctx context.Context, proposal *domain.Proposal) error
	Get(ctx context.Context, id string) (*domain.Proposal, error)
	List(ctx context.Context, params ProposalListParams) ([]domain.Proposal, int64, error)
	// IncrementVote adds one to the direction counter and to total_participants
	// in a single update. Returns domain.ErrProposalNotFound or
	// domain.ErrDirectionNotAllowed with no counter change.
	IncrementVote(ctx context.Context, id string, direction domain.VoteDirection) (*domain.Tally, error)
	Stats(ctx context.Context) (*GovernanceStats, error)
}

// ProposalListParams holds pagination for listing proposals.
type ProposalListParams struct {
	Page     int
	PageSize int
}

// GovernanceStats holds aggregated vote statistics.
type GovernanceStats struct {
	TotalProposals int64                          `json:"total_proposals"`
	TotalVotes     int64                          `json:"total_votes"`
	ByDirection    map[domain.VoteDirection]int64 `json:"votes_by_direction"`
}

// VoteReceiptStore enforces one vote per voter per proposal.
type VoteReceiptStore interface {
	// Claim atomically records the receipt. Returns false if the voter already voted.
	Claim(ctx context.Context, receipt *domain.VoteReceipt) (bool, error)
	// Release removes a receipt whose vote could not be counted.
	Release(ctx context.Context, proposalID string, voterAddress string) error
}

// MemberRepository defines persistence operations for members.
type MemberRepository interface {
	// Create stores a member. Returns domain.ErrEmailExists on a duplicate e-mail.
	Create(ctx context.Context, member *domain.Member) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error)
	GetByEmail(ctx context.Context, email string) (*domain.Member, error)
}

// AuditRepository persists and queries audit entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	// ListByMember returns the member's entries created at or after since,
	// newest first.
	ListByMember(ctx context.Context, memberID uuid.UUID, since time.Time) ([]domain.AuditLog, error)
	// ActivityByAction groups entries by action and keeps the groups with
	// more than minEvents entries, largest first. A nil memberID covers
	// every member.
	ActivityByAction(ctx context.Context, memberID *uuid.UUID, minEvents int64) ([]domain.ActivitySummary, error)
}
