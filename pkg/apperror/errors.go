package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another AppError by code, so errors.Is works on fresh constructors.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ErrNotFound reports a missing account, proposal or member.
func ErrNotFound(entity string) *AppError {
	return New("GEN_404", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Token Ledger (LED) ----

func ErrInsufficientFunds() *AppError {
	return New("LED_001", "Insufficient token balance", http.StatusUnprocessableEntity)
}

func ErrInvalidAmount() *AppError {
	return New("LED_002", "Amount must be a positive integer", http.StatusBadRequest)
}

func ErrSelfTransfer() *AppError {
	return New("LED_003", "Sender and receiver must differ", http.StatusBadRequest)
}

// ErrPartialTransfer reports a transfer applied to exactly one side.
// It requires reconciliation and is never retried automatically.
func ErrPartialTransfer(err error) *AppError {
	return Wrap("LED_004", "Transfer partially applied; pending reconciliation", http.StatusInternalServerError, err)
}

func ErrDuplicateTransfer() *AppError {
	return New("LED_005", "Idempotency key already used", http.StatusConflict)
}

func ErrTransferInProgress() *AppError {
	return New("LED_006", "Transfer with this idempotency key is in progress", http.StatusConflict)
}

func ErrAccountExists() *AppError {
	return New("LED_007", "Account already exists", http.StatusConflict)
}

// ErrTransferAborted is returned when reconciliation voided the transfer
// before its debit landed. Nothing moved.
func ErrTransferAborted() *AppError {
	return New("LED_008", "Transfer was aborted before it applied; retry with a new idempotency key", http.StatusConflict)
}

// ---- Voting (VOTE) ----

func ErrInvalidDirection() *AppError {
	return New("VOTE_001", "Vote direction not configured for proposal", http.StatusBadRequest)
}

func ErrAlreadyVoted() *AppError {
	return New("VOTE_002", "Voter has already voted on this proposal", http.StatusConflict)
}

func ErrInvalidSignature() *AppError {
	return New("VOTE_003", "Vote signature does not match voter address", http.StatusForbidden)
}

func ErrSignatureReplayed() *AppError {
	return New("VOTE_004", "Vote signature has already been used", http.StatusConflict)
}

func ErrUnboundMessage() *AppError {
	return New("VOTE_005", "Signed message must be vote:<proposal_id>:<direction>", http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrEmailExists() *AppError {
	return New("AUTH_002", "Email already registered", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("AUTH_004", "Insufficient permissions", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// ErrStoreUnavailable reports a transient store fault with no ledger effect. Safe to retry.
func ErrStoreUnavailable(err error) *AppError {
	return Wrap("SYS_002", "Store temporarily unavailable", http.StatusServiceUnavailable, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a GEN_400 validation error.
func Validation(message string) *AppError {
	return New("GEN_400", message, http.StatusBadRequest)
}
