package handler

import (
	"time"

	"governance-ledger/internal/adapter/http/middleware"
	"governance-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	MemberSvc      ports.MemberService
	LedgerSvc      ports.LedgerService
	ProposalSvc    ports.ProposalService
	VotingSvc      ports.VotingService
	ReportingSvc   ports.ReportingService
	TokenSvc       ports.TokenService
	AuditSvc       ports.AuditService // nil = audit logging disabled
	RateLimiter    middleware.Limiter // nil = rate limiting disabled
	RateLimit      int                // default per-window limit for the "api" group
	RateWindow     time.Duration
	MaxBodyBytes   int64
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBody))
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	r.GET("/docs", SwaggerUI)
	r.GET("/docs/openapi.yaml", OpenAPISpec)

	rules := middleware.DefaultRateLimitRules(deps.RateLimit, deps.RateWindow)
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimiter == nil || !ok || rule.Limit <= 0 {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimiter, group, rule, deps.Logger)
	}

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	adminOnly := middleware.RequireAdmin()

	v1 := r.Group("/api/v1")

	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	memberHandler := NewMemberHandler(deps.MemberSvc)
	v1.GET("/members/me", jwtAuth, rl("api"), memberHandler.GetProfile)

	tokenHandler := NewTokenHandler(deps.LedgerSvc)
	tokens := v1.Group("/tokens", jwtAuth)
	{
		tokens.POST("/allocate", adminOnly, rl("api"), tokenHandler.Allocate)
		tokens.POST("/transfer", rl("transfers"), tokenHandler.Transfer)
		tokens.GET("/history", rl("api"), tokenHandler.History)
	}

	proposalHandler := NewProposalHandler(deps.ProposalSvc, deps.ReportingSvc)
	voteHandler := NewVoteHandler(deps.VotingSvc)
	proposals := v1.Group("/proposals")
	{
		proposals.GET("", rl("api"), proposalHandler.List)
		proposals.POST("", jwtAuth, adminOnly, rl("api"), proposalHandler.Create)
		proposals.GET("/:id", rl("api"), proposalHandler.Get)
		proposals.POST("/:id/votes", rl("votes"), voteHandler.CastVote)
	}

	v1.GET("/analytics", rl("api"), proposalHandler.Analytics)

	if deps.AuditSvc != nil {
		auditHandler := NewAuditHandler(deps.AuditSvc)
		audit := v1.Group("/audit", jwtAuth, adminOnly)
		{
			audit.GET("/trail", rl("api"), auditHandler.Trail)
			audit.GET("/suspicious", rl("api"), auditHandler.Suspicious)
		}
	}

	return r
}
