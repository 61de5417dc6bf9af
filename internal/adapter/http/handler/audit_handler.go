package handler

import (
	"strconv"

	"governance-ledger/internal/core/ports"
	"governance-ledger/pkg/apperror"
	"governance-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditHandler serves the admin audit read paths.
type AuditHandler struct {
	auditSvc ports.AuditService
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditSvc ports.AuditService) *AuditHandler {
	return &AuditHandler{auditSvc: auditSvc}
}

// Trail handles GET /api/v1/audit/trail?member_id=&days= (admin).
func (h *AuditHandler) Trail(c *gin.Context) {
	raw := c.Query("member_id")
	if raw == "" {
		response.Error(c, apperror.Validation("member_id is required"))
		return
	}
	memberID, err := uuid.Parse(raw)
	if err != nil {
		response.Error(c, apperror.Validation("member_id must be a UUID"))
		return
	}

	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 1 {
		response.Error(c, apperror.Validation("days must be a positive integer"))
		return
	}

	trail, err := h.auditSvc.Trail(c.Request.Context(), memberID, days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, trail)
}

// Suspicious handles GET /api/v1/audit/suspicious?member_id= (admin).
func (h *AuditHandler) Suspicious(c *gin.Context) {
	var memberID *uuid.UUID
	if raw := c.Query("member_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Error(c, apperror.Validation("member_id must be a UUID"))
			return
		}
		memberID = &id
	}

	activity, err := h.auditSvc.SuspiciousActivity(c.Request.Context(), memberID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"suspicious_activities": activity})
}
