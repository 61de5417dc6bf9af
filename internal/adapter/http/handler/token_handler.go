package handler

import (
	"governance-ledger/internal/adapter/http/dto"
	"governance-ledger/internal/adapter/http/middleware"
	"governance-ledger/internal/core/domain"
	"governance-ledger/internal/core/ports"
	"governance-ledger/pkg/apperror"
	"governance-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the optional client key for transfer retries.
const HeaderIdempotencyKey = "Idempotency-Key"

const maxIdempotencyKeyLen = 128

// TokenHandler handles allocation, transfer and history endpoints.
type TokenHandler struct {
	ledger ports.LedgerService
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(ledger ports.LedgerService) *TokenHandler {
	return &TokenHandler{ledger: ledger}
}

// Allocate handles POST /api/v1/tokens/allocate (admin).
func (h *TokenHandler) Allocate(c *gin.Context) {
	var req dto.AllocateRequest
	if !bindSanitized(c, &req) {
		return
	}

	result, err := h.ledger.Allocate(c.Request.Context(), req.AccountID, domain.AllocationKind(req.AllocationType))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Transfer handles POST /api/v1/tokens/transfer from the caller's account.
// A retried request with the same Idempotency-Key is answered from the
// original result and marked with the Idempotent-Replayed header.
func (h *TokenHandler) Transfer(c *gin.Context) {
	memberID, ok := middleware.MemberID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	key := c.GetHeader(HeaderIdempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		response.Error(c, apperror.Validation("Idempotency-Key must be at most 128 characters"))
		return
	}

	var req dto.TransferRequest
	if !bindSanitized(c, &req) {
		return
	}

	result, err := h.ledger.Transfer(c.Request.Context(), ports.TransferRequest{
		FromAccount:    memberID.String(),
		ToAccount:      req.ToAccount,
		Amount:         req.Amount,
		IdempotencyKey: key,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.Replayed {
		response.Replayed(c, result)
		return
	}
	response.Created(c, result)
}

// History handles GET /api/v1/tokens/history. Admins may pass ?account_id=.
func (h *TokenHandler) History(c *gin.Context) {
	memberID, ok := middleware.MemberID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	accountID := memberID.String()
	if other := c.Query("account_id"); other != "" && other != accountID {
		if !middleware.IsAdmin(c) {
			response.Error(c, apperror.ErrForbidden())
			return
		}
		accountID = other
	}

	history, err := h.ledger.History(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, history)
}
