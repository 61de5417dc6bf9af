package domain

import "errors"

// Store-level outcomes. Adapters return these (possibly wrapped) so services
// can tell business conditions apart from infrastructure faults.
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountExists       = errors.New("account already exists")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDuplicateEntry      = errors.New("history entry already applied")
	ErrTransferNotFound    = errors.New("transfer not found")
	ErrTransferSettled     = errors.New("transfer no longer in expected status")
	ErrDuplicateTransfer   = errors.New("idempotency key already used")
	ErrProposalNotFound    = errors.New("proposal not found")
	ErrDirectionNotAllowed = errors.New("vote direction not configured for proposal")
	ErrEmailExists         = errors.New("email already registered")
)
