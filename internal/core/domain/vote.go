package domain

import (
	"fmt"
	"strings"
	"time"
)

// VoteStatus is the state of a single vote cast.
type VoteStatus string

const (
	VoteStatusReceived   VoteStatus = "RECEIVED"
	VoteStatusAuthorized VoteStatus = "AUTHORIZED"
	VoteStatusRejected   VoteStatus = "REJECTED"
	VoteStatusCounted    VoteStatus = "COUNTED"
)

// VoteCast is a signed vote submitted by a wallet holder.
type VoteCast struct {
	VoterAddress string
	ProposalID   string
	Direction    VoteDirection
	Message      string
	Signature    string
}

// VoteReceipt records that a voter has voted on a proposal.
// (ProposalID, VoterAddress) is unique.
type VoteReceipt struct {
	ProposalID   string        `json:"proposal_id"`
	VoterAddress string        `json:"voter_address"`
	Direction    VoteDirection `json:"direction"`
	CastAt       time.Time     `json:"cast_at"`
}

// NormalizeAddress returns the canonical lowercase form of a wallet address.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// CanonicalVoteMessage is the message a voter signs to cast direction on a proposal.
func CanonicalVoteMessage(proposalID string, direction VoteDirection) string {
	return fmt.Sprintf("vote:%s:%s", proposalID, direction)
}
