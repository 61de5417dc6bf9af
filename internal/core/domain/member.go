package domain

import (
	"time"

	"github.com/google/uuid"
)

// MemberRole represents the permissions of an organization member.
type MemberRole string

const (
	MemberRoleMember MemberRole = "member"
	MemberRoleAdmin  MemberRole = "admin"
)

// Member represents a registered organization member.
type Member struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"` // Never expose
	WalletAddress *string    `json:"wallet_address,omitempty"`
	Role          MemberRole `json:"role"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsAdmin returns true if the member may manage proposals and allocations.
func (m *Member) IsAdmin() bool {
	return m.Role == MemberRoleAdmin
}

// AccountID returns the id of the member's token account.
func (m *Member) AccountID() string {
	return m.ID.String()
}
