package ports

import (
	"context"
	"time"

	"governance-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// VoteAuthorizer checks that a vote was signed by the claimed voter.
// It never fails: any malformed input resolves to false.
type VoteAuthorizer interface {
	Verify(voterAddress string, message string, signature string) bool
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(memberID uuid.UUID, role domain.MemberRole) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	MemberID uuid.UUID
	Role     domain.MemberRole
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// NonceStore records single-use values such as vote signatures.
type NonceStore interface {
	// CheckAndSet atomically checks if nonce exists in scope, sets it if not.
	// Returns true if nonce is new, false if already used.
	CheckAndSet(ctx context.Context, scope string, nonce string, ttl time.Duration) (bool, error)
	// Release forgets a nonce whose request was not completed.
	Release(ctx context.Context, scope string, nonce string) error
}

// EventPublisher emits ledger events after a state change is committed.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LedgerEvent) error
	Close() error
}

// --- Service Ports (Business Logic) ---

// LedgerService allocates and transfers governance tokens.
type LedgerService interface {
	OpenAccount(ctx context.Context, accountID string) (*domain.Account, error)
	Allocate(ctx context.Context, accountID string, kind domain.AllocationKind) (*AllocationResult, error)
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	History(ctx context.Context, accountID string) (*AccountHistory, error)
}

// AllocationResult is the outcome of an allocation.
// OK is false for unknown kinds, which change nothing.
type AllocationResult struct {
	AccountID  string                `json:"account_id"`
	Kind       domain.AllocationKind `json:"allocation_type"`
	Amount     int64                 `json:"allocated_tokens"`
	NewBalance int64                 `json:"new_balance"`
	OK         bool                  `json:"success"`
}

// TransferRequest holds validated input for a transfer.
type TransferRequest struct {
	FromAccount    string
	ToAccount      string
	Amount         int64
	IdempotencyKey string // optional
}

// TransferResult is the outcome of a transfer.
type TransferResult struct {
	TransferID  uuid.UUID             `json:"transfer_id"`
	FromAccount string                `json:"from_account"`
	ToAccount   string                `json:"to_account"`
	MovedAmount int64                 `json:"amount"`
	Status      domain.TransferStatus `json:"status"`
	OK          bool                  `json:"success"`
	Replayed    bool                  `json:"-"`
}

// AccountHistory is the read-only view of an account.
type AccountHistory struct {
	AccountID    string                    `json:"account_id"`
	Balance      int64                     `json:"balance"`
	Transactions []domain.TokenTransaction `json:"transactions"`
}

// TallyService folds authorized votes into proposal counters.
// It does not verify signatures or deduplicate voters.
type TallyService interface {
	RecordVote(ctx context.Context, proposalID string, direction domain.VoteDirection) (*domain.Tally, error)
}

// VotingService runs a signed vote through authorization, deduplication and tally.
type VotingService interface {
	CastVote(ctx context.Context, vote domain.VoteCast) (*VoteResult, error)
}

// VoteResult is the outcome of a counted vote.
type VoteResult struct {
	ProposalID   string               `json:"proposal_id"`
	VoterAddress string               `json:"voter_address"`
	Direction    domain.VoteDirection `json:"direction"`
	Status       domain.VoteStatus    `json:"status"`
	Tally        *domain.Tally        `json:"tally"`
}

// ProposalService manages the proposal catalogue.
type ProposalService interface {
	Create(ctx context.Context, req CreateProposalRequest) (*domain.Proposal, error)
	Get(ctx context.Context, id string) (*domain.Proposal, error)
	List(ctx context.Context, params ProposalListParams) ([]domain.Proposal, int64, error)
}

// CreateProposalRequest holds input for creating a proposal.
type CreateProposalRequest struct {
	Title       string
	Description string
	Directions  []string // empty = configured defaults
	CreatedBy   uuid.UUID
}

// AuthService defines authentication business logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Login(ctx context.Context, email, password string) (string, time.Time, error) // token, expiry, error
}

// RegisterRequest holds input for member registration.
type RegisterRequest struct {
	Email         string
	Password      string
	WalletAddress *string
}

// RegisterResponse holds the registration result.
type RegisterResponse struct {
	MemberID  uuid.UUID `json:"member_id"`
	AccountID string    `json:"account_id"`
	Balance   int64     `json:"balance"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MemberService exposes member profiles.
type MemberService interface {
	GetProfile(ctx context.Context, memberID uuid.UUID) (*MemberProfile, error)
}

// MemberProfile is a member together with the current token balance.
type MemberProfile struct {
	Member  *domain.Member `json:"member"`
	Balance int64          `json:"balance"`
}

// ReportingService computes governance analytics.
type ReportingService interface {
	GetAnalytics(ctx context.Context) (*GovernanceStats, error)
}

// AuditService records audited actions asynchronously and serves the
// admin read paths over them.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
	// Trail returns the member's entries of the last days days; days <= 0
	// means the default window.
	Trail(ctx context.Context, memberID uuid.UUID, days int) (*AuditTrail, error)
	// SuspiciousActivity reports actions with more than
	// domain.SuspiciousActivityThreshold entries.
	SuspiciousActivity(ctx context.Context, memberID *uuid.UUID) ([]domain.ActivitySummary, error)
}

// AuditTrail is one member's recent audit history.
type AuditTrail struct {
	MemberID uuid.UUID         `json:"member_id"`
	Days     int               `json:"days"`
	Logs     []domain.AuditLog `json:"audit_logs"`
	Total    int               `json:"total_logs"`
}
