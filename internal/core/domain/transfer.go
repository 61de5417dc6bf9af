package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransferStatus represents the lifecycle state of a journaled transfer.
type TransferStatus string

const (
	TransferStatusPending    TransferStatus = "PENDING"
	TransferStatusApplied    TransferStatus = "APPLIED"
	TransferStatusReconciled TransferStatus = "RECONCILED"
	TransferStatusAborted    TransferStatus = "ABORTED"
)

// Transfer is the journal record of a token transfer between two accounts.
// It is written PENDING before the first leg is applied.
type Transfer struct {
	ID             uuid.UUID      `json:"transfer_id"`
	IdempotencyKey *string        `json:"idempotency_key,omitempty"`
	FromAccount    string         `json:"from_account"`
	ToAccount      string         `json:"to_account"`
	Amount         int64          `json:"amount"`
	Status         TransferStatus `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// IsTerminal returns true if the transfer will not change state again.
func (t *Transfer) IsTerminal() bool {
	return t.Status == TransferStatusApplied ||
		t.Status == TransferStatusReconciled ||
		t.Status == TransferStatusAborted
}

// IsCompleted returns true if both legs of the transfer are applied.
func (t *Transfer) IsCompleted() bool {
	return t.Status == TransferStatusApplied || t.Status == TransferStatusReconciled
}

// DebitID returns the id of the transfer_out entry.
func (t *Transfer) DebitID() uuid.UUID {
	return TransferLegID(t.ID, TransactionKindTransferOut)
}

// CreditID returns the id of the transfer_in entry.
func (t *Transfer) CreditID() uuid.UUID {
	return TransferLegID(t.ID, TransactionKindTransferIn)
}
