package domain

import (
	"regexp"
	"time"
)

// VoteDirection is one configured voting option of a proposal.
type VoteDirection string

const (
	VoteDirectionYes     VoteDirection = "yes"
	VoteDirectionNo      VoteDirection = "no"
	VoteDirectionAbstain VoteDirection = "abstain"
)

// TotalParticipantsKey is the reserved counter name for the participant total.
const TotalParticipantsKey = "total_participants"

var directionRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)

// Valid reports whether d can be used as a counter name.
func (d VoteDirection) Valid() bool {
	return directionRe.MatchString(string(d)) && string(d) != TotalParticipantsKey
}

// DefaultVoteDirections returns the standard yes/no/abstain set.
func DefaultVoteDirections() []VoteDirection {
	return []VoteDirection{VoteDirectionYes, VoteDirectionNo, VoteDirectionAbstain}
}

// Proposal is a governance proposal with its vote counters.
type Proposal struct {
	ID                string                  `json:"id"`
	Title             string                  `json:"title"`
	Description       string                  `json:"description"`
	Directions        []VoteDirection         `json:"directions"`
	Votes             map[VoteDirection]int64 `json:"votes"`
	TotalParticipants int64                   `json:"total_participants"`
	CreatedBy         string                  `json:"created_by"`
	CreatedAt         time.Time               `json:"created_at"`
}

// AllowsDirection returns true if d is one of the proposal's configured directions.
func (p *Proposal) AllowsDirection(d VoteDirection) bool {
	for _, allowed := range p.Directions {
		if allowed == d {
			return true
		}
	}
	return false
}

// Tally returns a snapshot of the proposal's counters.
func (p *Proposal) Tally() *Tally {
	counts := make(map[VoteDirection]int64, len(p.Directions))
	for _, d := range p.Directions {
		counts[d] = p.Votes[d]
	}
	return &Tally{
		ProposalID:        p.ID,
		Counts:            counts,
		TotalParticipants: p.TotalParticipants,
	}
}

// Tally is the set of per-direction vote counters of a proposal.
type Tally struct {
	ProposalID        string                  `json:"proposal_id"`
	Counts            map[VoteDirection]int64 `json:"counts"`
	TotalParticipants int64                   `json:"total_participants"`
}
