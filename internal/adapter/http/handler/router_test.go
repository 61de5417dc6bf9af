package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"governance-ledger/internal/adapter/events/kafka"
	"governance-ledger/internal/adapter/http/handler"
	"governance-ledger/internal/adapter/http/middleware"
	"governance-ledger/internal/adapter/storage/memory"
	redisStorage "governance-ledger/internal/adapter/storage/redis"
	"governance-ledger/internal/core/domain"
	"governance-ledger/internal/core/ports"
	"governance-ledger/internal/service"
	"governance-ledger/pkg/response"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminEmail = "admin@example.com"

type testServer struct {
	router *gin.Engine
	audit  *memory.AuditRepository
}

// newTestServer wires the real services over memory stores. A non-nil rdb
// moves idempotency, signature replay and rate limiting onto Redis.
func newTestServer(t *testing.T, rdb goredis.UniversalClient) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zerolog.Nop()

	accountStore := memory.NewAccountStore()
	journal := memory.NewTransferJournal()
	proposals := memory.NewProposalStore()
	receipts := memory.NewVoteReceiptStore()
	members := memory.NewMemberRepository()
	auditRepo := memory.NewAuditRepository()
	events := kafka.NoopPublisher{}

	var (
		idempCache ports.IdempotencyCache
		replay     ports.NonceStore = memory.NewNonceStore()
		limiter    middleware.Limiter
	)
	if rdb != nil {
		idempCache = redisStorage.NewIdempotencyCache(rdb)
		replay = redisStorage.NewNonceStore(rdb)
		limiter = redisStorage.NewRateLimitStore(rdb)
	}

	ledger := service.NewLedgerService(accountStore, journal, idempCache, events, domain.DefaultAllocationTable(), time.Hour, log)
	tokenSvc := service.NewJWTTokenService("test-secret-with-enough-length!!", time.Hour, "governance-ledger")
	hashSvc := service.NewArgon2HashService(service.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32})
	authSvc := service.NewAuthService(members, ledger, hashSvc, tokenSvc, service.AuthOptions{
		AdminEmails: []string{adminEmail},
		SignupGrant: true,
	}, log)
	proposalSvc, err := service.NewProposalService(proposals, nil, log)
	require.NoError(t, err)
	votingSvc := service.NewVotingService(
		service.NewEthereumVoteAuthorizer(),
		service.NewTallyService(proposals, log),
		proposals, receipts, replay, events,
		service.VotingOptions{RequireBoundMessage: true, ReplayTTL: time.Hour},
		log,
	)

	r := handler.SetupRouter(handler.RouterDeps{
		AuthSvc:        authSvc,
		MemberSvc:      service.NewMemberService(members, accountStore),
		LedgerSvc:      ledger,
		ProposalSvc:    proposalSvc,
		VotingSvc:      votingSvc,
		ReportingSvc:   service.NewReportingService(proposals),
		TokenSvc:       tokenSvc,
		AuditSvc:       service.NewAuditService(auditRepo, log),
		RateLimiter:    limiter,
		RateLimit:      100,
		RateWindow:     time.Minute,
		HealthCheckers: []ports.HealthChecker{memory.HealthCheck{}},
		Logger:         log,
	})
	return &testServer{router: r, audit: auditRepo}
}

type call struct {
	method string
	path   string
	body   interface{}
	token  string
	header map[string]string
}

func (s *testServer) do(t *testing.T, c call) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var body bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func (s *testServer) register(t *testing.T, email string) (token, accountID string) {
	t.Helper()
	w, resp := s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/register", body: map[string]string{
		"email":    email,
		"password": "Govern#2024",
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := resp["data"].(map[string]interface{})
	return data["token"].(string), data["account_id"].(string)
}

func data(t *testing.T, resp map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "response has no data: %v", resp)
	return d
}

func TestRouter_TokenFlow(t *testing.T) {
	s := newTestServer(t, nil)
	adminToken, adminAccount := s.register(t, adminEmail)
	aliceToken, aliceAccount := s.register(t, "alice@example.com")

	// signup grant
	w, resp := s.do(t, call{method: http.MethodGet, path: "/api/v1/tokens/history", token: aliceToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(100), data(t, resp)["balance"])
	afterSignup := data(t, resp)["transactions"].([]interface{})
	require.Len(t, afterSignup, 1)

	// members cannot allocate
	w, _ = s.do(t, call{method: http.MethodPost, path: "/api/v1/tokens/allocate", token: aliceToken,
		body: map[string]string{"account_id": aliceAccount, "allocation_type": "active_voter"}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = s.do(t, call{method: http.MethodPost, path: "/api/v1/tokens/allocate", token: adminToken,
		body: map[string]string{"account_id": aliceAccount, "allocation_type": "active_voter"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(125), data(t, resp)["new_balance"])

	w, resp = s.do(t, call{method: http.MethodPost, path: "/api/v1/tokens/allocate", token: adminToken,
		body: map[string]string{"account_id": aliceAccount, "allocation_type": "bogus"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, data(t, resp)["success"])

	transfer := call{
		method: http.MethodPost,
		path:   "/api/v1/tokens/transfer",
		token:  aliceToken,
		body:   map[string]interface{}{"to_account": adminAccount, "amount": 40},
		header: map[string]string{handler.HeaderIdempotencyKey: "alice-1"},
	}
	w, resp = s.do(t, transfer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	transferID := data(t, resp)["transfer_id"]

	w, resp = s.do(t, transfer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get(response.ReplayedHeader))
	assert.Equal(t, transferID, data(t, resp)["transfer_id"])

	w, resp = s.do(t, call{method: http.MethodPost, path: "/api/v1/tokens/transfer", token: aliceToken,
		body: map[string]interface{}{"to_account": adminAccount, "amount": 1000}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "LED_001", resp["error_code"])

	w, resp = s.do(t, call{method: http.MethodGet, path: "/api/v1/tokens/history", token: aliceToken})
	require.Equal(t, http.StatusOK, w.Code)
	history := data(t, resp)
	assert.Equal(t, float64(85), history["balance"])
	entries := history["transactions"].([]interface{})
	require.Len(t, entries, 3)
	// History is append-only: earlier reads are a prefix of later ones.
	assert.Equal(t, afterSignup, entries[:len(afterSignup)])
	assert.Equal(t, float64(25), entries[1].(map[string]interface{})["amount"])
	assert.Equal(t, float64(-40), entries[2].(map[string]interface{})["amount"])

	w, resp = s.do(t, call{method: http.MethodGet, path: "/api/v1/tokens/history?account_id=" + adminAccount, token: adminToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(140), data(t, resp)["balance"])

	w, _ = s.do(t, call{method: http.MethodGet, path: "/api/v1/tokens/history?account_id=" + adminAccount, token: aliceToken})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = s.do(t, call{method: http.MethodGet, path: "/api/v1/members/me", token: aliceToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(85), data(t, resp)["balance"])

	assert.Eventually(t, func() bool {
		return len(s.audit.Logs()) > 0
	}, time.Second, 10*time.Millisecond)
}

func signVote(t *testing.T, message string) (address, signature string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), hexutil.Encode(sig)
}

func TestRouter_VoteFlow(t *testing.T) {
	s := newTestServer(t, nil)
	adminToken, _ := s.register(t, adminEmail)
	aliceToken, _ := s.register(t, "alice@example.com")

	create := call{method: http.MethodPost, path: "/api/v1/proposals",
		body: map[string]interface{}{"title": "Fund the audit", "directions": []string{"yes", "no", "abstain"}}}

	create.token = aliceToken
	w, _ := s.do(t, create)
	assert.Equal(t, http.StatusForbidden, w.Code)

	create.token = adminToken
	w, resp := s.do(t, create)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	proposalID := data(t, resp)["id"].(string)
	votePath := "/api/v1/proposals/" + proposalID + "/votes"

	msg := fmt.Sprintf("vote:%s:yes", proposalID)
	voter, sig := signVote(t, msg)
	ballot := map[string]string{
		"voter_address":  voter,
		"vote_direction": "yes",
		"message":        msg,
		"signature":      sig,
	}

	w, resp = s.do(t, call{method: http.MethodPost, path: votePath, body: ballot})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, string(domain.VoteStatusCounted), data(t, resp)["status"])

	w, _ = s.do(t, call{method: http.MethodPost, path: votePath, body: ballot})
	assert.Equal(t, http.StatusConflict, w.Code)

	// signature from another key
	_, forged := signVote(t, msg)
	other, _ := signVote(t, msg)
	w, resp = s.do(t, call{method: http.MethodPost, path: votePath, body: map[string]string{
		"voter_address":  other,
		"vote_direction": "yes",
		"message":        msg,
		"signature":      forged,
	}})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "VOTE_003", resp["error_code"])

	noMsg := fmt.Sprintf("vote:%s:no", proposalID)
	noVoter, noSig := signVote(t, noMsg)
	w, _ = s.do(t, call{method: http.MethodPost, path: votePath, body: map[string]string{
		"voter_address":  noVoter,
		"vote_direction": "no",
		"message":        noMsg,
		"signature":      noSig,
	}})
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = s.do(t, call{method: http.MethodGet, path: "/api/v1/proposals/" + proposalID})
	require.Equal(t, http.StatusOK, w.Code)
	p := data(t, resp)
	assert.Equal(t, float64(2), p["total_participants"])
	votes := p["votes"].(map[string]interface{})
	assert.Equal(t, float64(1), votes["yes"])
	assert.Equal(t, float64(1), votes["no"])
	assert.Equal(t, float64(0), votes["abstain"])

	w, resp = s.do(t, call{method: http.MethodGet, path: "/api/v1/analytics"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), data(t, resp)["total_votes"])

	w, resp = s.do(t, call{method: http.MethodGet, path: "/api/v1/proposals"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), data(t, resp)["total"])
}

func TestRouter_PublicSurface(t *testing.T) {
	s := newTestServer(t, nil)

	w, _ := s.do(t, call{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w, _ = s.do(t, call{method: http.MethodGet, path: "/api/v1/tokens/history"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, call{method: http.MethodGet, path: "/api/v1/proposals/missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.register(t, "bob@example.com")
	w, resp := s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/register", body: map[string]string{
		"email": "bob@example.com", "password": "Govern#2024",
	}})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "AUTH_002", resp["error_code"])

	w, resp = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/login", body: map[string]string{
		"email": "bob@example.com", "password": "Govern#2024",
	}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, data(t, resp)["token"])
}

func TestRouter_AuditReadPaths(t *testing.T) {
	s := newTestServer(t, nil)
	adminToken, adminAccount := s.register(t, adminEmail)
	aliceToken, aliceAccount := s.register(t, "alice@example.com")

	for i := 0; i < 12; i++ {
		w, _ := s.do(t, call{method: http.MethodPost, path: "/api/v1/tokens/transfer", token: aliceToken,
			body: map[string]interface{}{"to_account": adminAccount, "amount": 1}})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	require.Eventually(t, func() bool {
		return len(s.audit.Logs()) >= 14
	}, time.Second, 10*time.Millisecond)

	trailPath := "/api/v1/audit/trail?member_id=" + aliceAccount

	w, _ := s.do(t, call{method: http.MethodGet, path: trailPath, token: aliceToken})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, call{method: http.MethodGet, path: trailPath})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	for _, bad := range []string{"/api/v1/audit/trail", "/api/v1/audit/trail?member_id=nope", trailPath + "&days=abc", trailPath + "&days=9999"} {
		w, resp := s.do(t, call{method: http.MethodGet, path: bad, token: adminToken})
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
		assert.Equal(t, "GEN_400", resp["error_code"], bad)
	}

	w, resp := s.do(t, call{method: http.MethodGet, path: trailPath + "&days=7", token: adminToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	trail := data(t, resp)
	assert.Equal(t, float64(12), trail["total_logs"])
	assert.Equal(t, float64(7), trail["days"])
	logs := trail["audit_logs"].([]interface{})
	require.Len(t, logs, 12)
	first := logs[0].(map[string]interface{})
	assert.Equal(t, string(domain.AuditActionTransfer), first["action"])
	assert.Equal(t, aliceAccount, first["member_id"])

	w, resp = s.do(t, call{method: http.MethodGet, path: "/api/v1/audit/suspicious", token: adminToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	activity := data(t, resp)["suspicious_activities"].([]interface{})
	require.Len(t, activity, 1)
	transfers := activity[0].(map[string]interface{})
	assert.Equal(t, string(domain.AuditActionTransfer), transfers["action"])
	assert.Equal(t, float64(12), transfers["total_events"])
	assert.Equal(t, []interface{}{aliceAccount}, transfers["unique_members"])

	w, resp = s.do(t, call{method: http.MethodGet, path: "/api/v1/audit/suspicious?member_id=" + adminAccount, token: adminToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, data(t, resp)["suspicious_activities"])

	w, _ = s.do(t, call{method: http.MethodGet, path: "/api/v1/audit/suspicious?member_id=nope", token: adminToken})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
