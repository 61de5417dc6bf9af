package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionRegister       AuditAction = "REGISTER"
	AuditActionLogin          AuditAction = "LOGIN"
	AuditActionAllocate       AuditAction = "ALLOCATE"
	AuditActionTransfer       AuditAction = "TRANSFER"
	AuditActionVote           AuditAction = "VOTE"
	AuditActionCreateProposal AuditAction = "CREATE_PROPOSAL"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	MemberID     *uuid.UUID  `json:"member_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}

// SuspiciousActivityThreshold is the event count an action must exceed to be
// reported as suspicious.
const SuspiciousActivityThreshold = 10

// ActivitySummary aggregates the audit entries of one action.
type ActivitySummary struct {
	Action      AuditAction `json:"action"`
	TotalEvents int64       `json:"total_events"`
	MemberIDs   []uuid.UUID `json:"unique_members"`
}
