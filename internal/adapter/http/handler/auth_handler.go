package handler

import (
	"governance-ledger/internal/adapter/http/dto"
	"governance-ledger/internal/core/ports"
	"governance-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler serves member sign-up and sign-in.
type AuthHandler struct {
	authSvc ports.AuthService
}

func NewAuthHandler(authSvc ports.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Register handles POST /api/v1/auth/register. The response carries the
// new member's account, its starting balance, and a session token.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindSanitized(c, &req) {
		return
	}

	reg, err := h.authSvc.Register(c.Request.Context(), ports.RegisterRequest{
		Email:         req.Email,
		Password:      req.Password,
		WalletAddress: req.WalletAddress,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.RegisterResponse{
		MemberID:  reg.MemberID.String(),
		AccountID: reg.AccountID,
		Balance:   reg.Balance,
		Token:     reg.Token,
		Expiry:    reg.ExpiresAt.Unix(),
	})
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindSanitized(c, &req) {
		return
	}

	token, expiresAt, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.LoginResponse{Token: token, Expiry: expiresAt.Unix()})
}
