package domain

import "fmt"

// AllocationKind names a reason tokens are created for an account.
type AllocationKind string

const (
	AllocationSignup             AllocationKind = "signup"
	AllocationProposalCreation   AllocationKind = "proposal_creation"
	AllocationSuccessfulProposal AllocationKind = "successful_proposal"
	AllocationActiveVoter        AllocationKind = "active_voter"
)

// AllocationTable maps allocation kinds to fixed token amounts.
// It is immutable after construction.
type AllocationTable struct {
	amounts map[AllocationKind]int64
}

// DefaultAllocationTable returns the standard allocation amounts.
func DefaultAllocationTable() AllocationTable {
	return AllocationTable{amounts: map[AllocationKind]int64{
		AllocationSignup:             100,
		AllocationProposalCreation:   50,
		AllocationSuccessfulProposal: 200,
		AllocationActiveVoter:        25,
	}}
}

// NewAllocationTable builds a table from the defaults with the given overrides applied.
// Negative amounts are rejected.
func NewAllocationTable(overrides map[string]int64) (AllocationTable, error) {
	table := DefaultAllocationTable()
	for kind, amount := range overrides {
		if amount < 0 {
			return AllocationTable{}, fmt.Errorf("allocation %q: amount must not be negative, got %d", kind, amount)
		}
		table.amounts[AllocationKind(kind)] = amount
	}
	return table, nil
}

// Amount returns the token amount for kind. Unknown kinds resolve to 0.
func (t AllocationTable) Amount(kind AllocationKind) int64 {
	return t.amounts[kind]
}

// Kinds returns a copy of the configured amounts.
func (t AllocationTable) Kinds() map[AllocationKind]int64 {
	out := make(map[AllocationKind]int64, len(t.amounts))
	for k, v := range t.amounts {
		out[k] = v
	}
	return out
}
