package dto

import "time"

// RegisterRequest is the request body for member registration.
type RegisterRequest struct {
	Email         string  `json:"email" binding:"required,email,max=254"`
	Password      string  `json:"password" binding:"required,min=8,max=128,strong_password"`
	WalletAddress *string `json:"wallet_address,omitempty" binding:"omitempty,eth_addr"`
}

// LoginRequest is the request body for member login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	MemberID  string `json:"member_id"`
	AccountID string `json:"account_id"`
	Balance   int64  `json:"balance"`
	Token     string `json:"token"`
	Expiry    int64  `json:"expiry"` // Unix timestamp
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// AllocateRequest is the request body for an admin token allocation.
type AllocateRequest struct {
	AccountID      string `json:"account_id" binding:"required,max=64"`
	AllocationType string `json:"allocation_type" binding:"required,max=64,safe_id"`
}

// TransferRequest is the request body for a transfer from the caller's account.
type TransferRequest struct {
	ToAccount string `json:"to_account" binding:"required,max=64"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
}

// CreateProposalRequest is the request body for creating a proposal.
type CreateProposalRequest struct {
	Title       string   `json:"title" binding:"required,min=1,max=200"`
	Description string   `json:"description" binding:"max=5000"`
	Directions  []string `json:"directions,omitempty" binding:"omitempty,max=16,dive,vote_direction"`
}

// CastVoteRequest is the request body for a signed vote.
type CastVoteRequest struct {
	VoterAddress  string `json:"voter_address" binding:"required,eth_addr"`
	VoteDirection string `json:"vote_direction" binding:"required,vote_direction"`
	Message       string `json:"message" binding:"required,max=1024"`
	Signature     string `json:"signature" binding:"required,max=200"`
}

// ProposalResponse is a proposal together with its counters.
type ProposalResponse struct {
	ID                string           `json:"id"`
	Title             string           `json:"title"`
	Description       string           `json:"description"`
	Directions        []string         `json:"directions"`
	Votes             map[string]int64 `json:"votes"`
	TotalParticipants int64            `json:"total_participants"`
	CreatedBy         string           `json:"created_by"`
	CreatedAt         time.Time        `json:"created_at"`
}

// ProposalListResponse wraps a page of proposals.
type ProposalListResponse struct {
	Items      []ProposalResponse `json:"items"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}
