package handler

import (
	"governance-ledger/internal/adapter/http/middleware"
	"governance-ledger/internal/core/ports"
	"governance-ledger/pkg/apperror"
	"governance-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// MemberHandler handles member profile endpoints.
type MemberHandler struct {
	memberSvc ports.MemberService
}

// NewMemberHandler creates a new MemberHandler.
func NewMemberHandler(memberSvc ports.MemberService) *MemberHandler {
	return &MemberHandler{memberSvc: memberSvc}
}

// GetProfile handles GET /api/v1/members/me.
func (h *MemberHandler) GetProfile(c *gin.Context) {
	memberID, ok := middleware.MemberID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	profile, err := h.memberSvc.GetProfile(c.Request.Context(), memberID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, profile)
}
