package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"governance-ledger/internal/core/domain"
	"governance-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog records successful write operations through the audit service.
// Routes are matched on their registered pattern, so path parameters are
// reported as the resource id.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			return
		}

		action, resourceType := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		var memberID *uuid.UUID
		if id, ok := MemberID(c); ok {
			memberID = &id
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"request_id": c.GetString(CtxRequestID),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			MemberID:     memberID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.Param("id"),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

func mapRouteToAction(route, method string) (domain.AuditAction, string) {
	if method != http.MethodPost {
		return "", ""
	}
	switch route {
	case "/api/v1/auth/register":
		return domain.AuditActionRegister, "member"
	case "/api/v1/auth/login":
		return domain.AuditActionLogin, "session"
	case "/api/v1/tokens/allocate":
		return domain.AuditActionAllocate, "account"
	case "/api/v1/tokens/transfer":
		return domain.AuditActionTransfer, "transfer"
	case "/api/v1/proposals":
		return domain.AuditActionCreateProposal, "proposal"
	case "/api/v1/proposals/:id/votes":
		return domain.AuditActionVote, "proposal"
	}
	return "", ""
}
