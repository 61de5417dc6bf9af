package domain

import "time"

// LedgerEventType names an event published after a committed state change.
type LedgerEventType string

const (
	EventTokenAllocated   LedgerEventType = "token_allocated"
	EventTokenTransferred LedgerEventType = "token_transferred"
	EventVoteCounted      LedgerEventType = "vote_counted"
)

// LedgerEvent is the payload published to the event stream.
type LedgerEvent struct {
	Type         LedgerEventType `json:"type"`
	ID           string          `json:"id"`
	AccountID    string          `json:"account_id,omitempty"`
	Counterparty string          `json:"counterparty,omitempty"`
	Amount       int64           `json:"amount,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	ProposalID   string          `json:"proposal_id,omitempty"`
	Direction    string          `json:"direction,omitempty"`
	OccurredAt   time.Time       `json:"occurred_at"`
}
