package handler

import (
	"governance-ledger/internal/adapter/http/dto"
	"governance-ledger/internal/core/domain"
	"governance-ledger/internal/core/ports"
	"governance-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// VoteHandler handles signed votes. The signature is the credential, so
// the route needs no JWT.
type VoteHandler struct {
	votingSvc ports.VotingService
}

// NewVoteHandler creates a new VoteHandler.
func NewVoteHandler(votingSvc ports.VotingService) *VoteHandler {
	return &VoteHandler{votingSvc: votingSvc}
}

// CastVote handles POST /api/v1/proposals/:id/votes.
// The body is not sanitized: message and signature must reach the
// authorizer byte for byte.
func (h *VoteHandler) CastVote(c *gin.Context) {
	var req dto.CastVoteRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.votingSvc.CastVote(c.Request.Context(), domain.VoteCast{
		VoterAddress: req.VoterAddress,
		ProposalID:   c.Param("id"),
		Direction:    domain.VoteDirection(req.VoteDirection),
		Message:      req.Message,
		Signature:    req.Signature,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
