package handler

import (
	"math"
	"strconv"

	"governance-ledger/internal/adapter/http/dto"
	"governance-ledger/internal/adapter/http/middleware"
	"governance-ledger/internal/core/domain"
	"governance-ledger/internal/core/ports"
	"governance-ledger/pkg/apperror"
	"governance-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// ProposalHandler handles the proposal catalogue and analytics endpoints.
type ProposalHandler struct {
	proposalSvc  ports.ProposalService
	reportingSvc ports.ReportingService
}

// NewProposalHandler creates a new ProposalHandler.
func NewProposalHandler(proposalSvc ports.ProposalService, reportingSvc ports.ReportingService) *ProposalHandler {
	return &ProposalHandler{proposalSvc: proposalSvc, reportingSvc: reportingSvc}
}

// Create handles POST /api/v1/proposals (admin).
func (h *ProposalHandler) Create(c *gin.Context) {
	memberID, ok := middleware.MemberID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateProposalRequest
	if !bindSanitized(c, &req) {
		return
	}

	p, err := h.proposalSvc.Create(c.Request.Context(), ports.CreateProposalRequest{
		Title:       req.Title,
		Description: req.Description,
		Directions:  req.Directions,
		CreatedBy:   memberID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toProposalResponse(p))
}

// Get handles GET /api/v1/proposals/:id.
func (h *ProposalHandler) Get(c *gin.Context) {
	p, err := h.proposalSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toProposalResponse(p))
}

// List handles GET /api/v1/proposals.
func (h *ProposalHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	items, total, err := h.proposalSvc.List(c.Request.Context(), ports.ProposalListParams{Page: page, PageSize: pageSize})
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.ProposalResponse, 0, len(items))
	for i := range items {
		out = append(out, toProposalResponse(&items[i]))
	}

	response.OK(c, dto.ProposalListResponse{
		Items:      out,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	})
}

// Analytics handles GET /api/v1/analytics.
func (h *ProposalHandler) Analytics(c *gin.Context) {
	stats, err := h.reportingSvc.GetAnalytics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

func toProposalResponse(p *domain.Proposal) dto.ProposalResponse {
	resp := dto.ProposalResponse{
		ID:                p.ID,
		Title:             p.Title,
		Description:       p.Description,
		Directions:        make([]string, 0, len(p.Directions)),
		Votes:             make(map[string]int64, len(p.Directions)),
		TotalParticipants: p.TotalParticipants,
		CreatedBy:         p.CreatedBy,
		CreatedAt:         p.CreatedAt,
	}
	for _, d := range p.Directions {
		resp.Directions = append(resp.Directions, string(d))
		resp.Votes[string(d)] = p.Votes[d]
	}
	return resp
}
