package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionKind represents the kind of token movement recorded in an account history.
type TransactionKind string

const (
	TransactionKindAllocation  TransactionKind = "allocation"
	TransactionKindTransferOut TransactionKind = "transfer_out"
	TransactionKindTransferIn  TransactionKind = "transfer_in"
	// TransactionKindTransferVoid fences the debit leg of an aborted
	// transfer. It moves nothing and carries the debit leg id.
	TransactionKindTransferVoid TransactionKind = "transfer_void"
)

// TokenTransaction is an immutable entry in an account's token history.
// Amount is the signed balance delta the entry applied.
type TokenTransaction struct {
	ID           uuid.UUID       `json:"transaction_id"`
	Kind         TransactionKind `json:"type"`
	Amount       int64           `json:"amount"`
	Counterparty *string         `json:"counterparty,omitempty"`
	TransferID   *uuid.UUID      `json:"transfer_id,omitempty"`
	Reason       *AllocationKind `json:"reason,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// IsCredit returns true if the entry increased the balance.
func (t *TokenTransaction) IsCredit() bool {
	return t.Amount > 0
}

// IsVoid returns true for the fence left by an aborted transfer.
func (t *TokenTransaction) IsVoid() bool {
	return t.Kind == TransactionKindTransferVoid
}

// NewAllocationEntry builds the history entry for a token allocation.
func NewAllocationEntry(kind AllocationKind, amount int64, now time.Time) TokenTransaction {
	reason := kind
	return TokenTransaction{
		ID:        uuid.New(),
		Kind:      TransactionKindAllocation,
		Amount:    amount,
		Reason:    &reason,
		Timestamp: now,
	}
}

// NewTransferEntries builds the debit and credit legs of a transfer.
// Leg ids are derived from the transfer id, so re-applying a leg is detectable.
func NewTransferEntries(t *Transfer, now time.Time) (debit TokenTransaction, credit TokenTransaction) {
	transferID := t.ID
	to := t.ToAccount
	from := t.FromAccount

	debit = TokenTransaction{
		ID:           TransferLegID(t.ID, TransactionKindTransferOut),
		Kind:         TransactionKindTransferOut,
		Amount:       -t.Amount,
		Counterparty: &to,
		TransferID:   &transferID,
		Timestamp:    now,
	}
	credit = TokenTransaction{
		ID:           TransferLegID(t.ID, TransactionKindTransferIn),
		Kind:         TransactionKindTransferIn,
		Amount:       t.Amount,
		Counterparty: &from,
		TransferID:   &transferID,
		Timestamp:    now,
	}
	return debit, credit
}

// NewVoidEntry builds the zero-amount entry that takes the debit leg id of
// an aborted transfer, so a late debit is rejected as a duplicate.
func NewVoidEntry(t *Transfer, now time.Time) TokenTransaction {
	transferID := t.ID
	to := t.ToAccount
	return TokenTransaction{
		ID:           t.DebitID(),
		Kind:         TransactionKindTransferVoid,
		Amount:       0,
		Counterparty: &to,
		TransferID:   &transferID,
		Timestamp:    now,
	}
}

// TransferLegID returns the deterministic entry id of one leg of a transfer.
func TransferLegID(transferID uuid.UUID, kind TransactionKind) uuid.UUID {
	return uuid.NewSHA1(transferID, []byte(kind))
}
