package handler

import (
	"governance-ledger/internal/adapter/http/dto"
	"governance-ledger/pkg/apperror"
	"governance-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// bindJSON decodes and validates the body into dst, writing a GEN_400
// response on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return false
	}
	return true
}

// bindSanitized is bindJSON followed by dto.SanitizeStruct. Signed payloads
// must use bindJSON so the message bytes stay intact.
func bindSanitized(c *gin.Context, dst interface{}) bool {
	if !bindJSON(c, dst) {
		return false
	}
	dto.SanitizeStruct(dst)
	return true
}
