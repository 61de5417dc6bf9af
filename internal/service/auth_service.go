package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"governance-ledger/internal/core/domain"
	"governance-ledger/internal/core/ports"
	"governance-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuthOptions configures member registration.
type AuthOptions struct {
	AdminEmails []string
	// SignupGrant allocates the signup amount right after the account is opened.
	SignupGrant bool
}

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	members  ports.MemberRepository
	ledger   ports.LedgerService
	hashSvc  ports.HashService
	tokenSvc ports.TokenService
	admins   map[string]struct{}
	grant    bool
	log      zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	members ports.MemberRepository,
	ledger ports.LedgerService,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	opts AuthOptions,
	log zerolog.Logger,
) *AuthServiceImpl {
	admins := make(map[string]struct{}, len(opts.AdminEmails))
	for _, e := range opts.AdminEmails {
		admins[normalizeEmail(e)] = struct{}{}
	}
	return &AuthServiceImpl{
		members:  members,
		ledger:   ledger,
		hashSvc:  hashSvc,
		tokenSvc: tokenSvc,
		admins:   admins,
		grant:    opts.SignupGrant,
		log:      log,
	}
}

// Register creates a member, opens the member's token account at balance 0
// and, when enabled, grants the signup allocation.
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*ports.RegisterResponse, error) {
	email := normalizeEmail(req.Email)

	existing, err := s.members.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check email: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrEmailExists()
	}

	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	role := domain.MemberRoleMember
	if _, ok := s.admins[email]; ok {
		role = domain.MemberRoleAdmin
	}

	var wallet *string
	if req.WalletAddress != nil && *req.WalletAddress != "" {
		w := domain.NormalizeAddress(*req.WalletAddress)
		wallet = &w
	}

	now := time.Now().UTC()
	member := &domain.Member{
		ID:            uuid.New(),
		Email:         email,
		PasswordHash:  passwordHash,
		WalletAddress: wallet,
		Role:          role,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.members.Create(ctx, member); err != nil {
		if errors.Is(err, domain.ErrEmailExists) {
			return nil, apperror.ErrEmailExists()
		}
		return nil, apperror.InternalError(fmt.Errorf("create member: %w", err))
	}

	account, err := s.ledger.OpenAccount(ctx, member.AccountID())
	if err != nil {
		return nil, err
	}
	balance := account.Balance

	if s.grant {
		result, err := s.ledger.Allocate(ctx, member.AccountID(), domain.AllocationSignup)
		if err != nil {
			s.log.Warn().Err(err).Str("member_id", member.ID.String()).Msg("signup allocation failed")
		} else {
			balance = result.NewBalance
		}
	}

	token, expiresAt, err := s.tokenSvc.Generate(member.ID, member.Role)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	s.log.Info().Str("member_id", member.ID.String()).Str("role", string(role)).Msg("member registered")

	return &ports.RegisterResponse{
		MemberID:  member.ID,
		AccountID: member.AccountID(),
		Balance:   balance,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Login validates credentials and returns a JWT token.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	member, err := s.members.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("find member: %w", err))
	}
	if member == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, member.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	token, expiry, err := s.tokenSvc.Generate(member.ID, member.Role)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return token, expiry, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
