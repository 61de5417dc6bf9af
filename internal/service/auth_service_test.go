package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"governance-ledger/internal/core/domain"
	"governance-ledger/internal/core/ports"
	"governance-ledger/internal/core/ports/mocks"
	"governance-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type authTestDeps struct {
	svc      *AuthServiceImpl
	members  *mocks.MockMemberRepository
	ledger   *mocks.MockLedgerService
	hashSvc  *mocks.MockHashService
	tokenSvc *mocks.MockTokenService
	ctrl     *gomock.Controller
}

func setupAuthService(t *testing.T, opts AuthOptions) *authTestDeps {
	ctrl := gomock.NewController(t)
	d := &authTestDeps{
		members:  mocks.NewMockMemberRepository(ctrl),
		ledger:   mocks.NewMockLedgerService(ctrl),
		hashSvc:  mocks.NewMockHashService(ctrl),
		tokenSvc: mocks.NewMockTokenService(ctrl),
		ctrl:     ctrl,
	}
	d.svc = NewAuthService(d.members, d.ledger, d.hashSvc, d.tokenSvc, opts, zerolog.Nop())
	return d
}

func TestAuthService_Register_WithSignupGrant(t *testing.T) {
	d := setupAuthService(t, AuthOptions{SignupGrant: true})
	defer d.ctrl.Finish()
	ctx := context.Background()

	wallet := "0xABCDEF0000000000000000000000000000000001"
	expiry := time.Now().Add(time.Hour)
	var created *domain.Member

	d.members.EXPECT().GetByEmail(ctx, "alice@example.com").Return(nil, nil)
	d.hashSvc.EXPECT().Hash("Str0ng!Passw0rd").Return("$argon2id$hash", nil)
	d.members.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, m *domain.Member) error {
			assert.Equal(t, "alice@example.com", m.Email)
			assert.Equal(t, "$argon2id$hash", m.PasswordHash)
			assert.Equal(t, domain.MemberRoleMember, m.Role)
			require.NotNil(t, m.WalletAddress)
			assert.Equal(t, "0xabcdef0000000000000000000000000000000001", *m.WalletAddress)
			created = m
			return nil
		},
	)
	d.ledger.EXPECT().OpenAccount(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, id string) (*domain.Account, error) {
			assert.Equal(t, created.AccountID(), id)
			return domain.NewAccount(id, time.Now()), nil
		},
	)
	d.ledger.EXPECT().Allocate(ctx, gomock.Any(), domain.AllocationSignup).Return(&ports.AllocationResult{NewBalance: 100, OK: true}, nil)
	d.tokenSvc.EXPECT().Generate(gomock.Any(), domain.MemberRoleMember).Return("jwt-token", expiry, nil)

	resp, err := d.svc.Register(ctx, ports.RegisterRequest{
		Email:         "  Alice@Example.com ",
		Password:      "Str0ng!Passw0rd",
		WalletAddress: &wallet,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, resp.MemberID)
	assert.Equal(t, created.ID.String(), resp.AccountID)
	assert.Equal(t, int64(100), resp.Balance)
	assert.Equal(t, "jwt-token", resp.Token)
}

func TestAuthService_Register_WithoutGrantStartsAtZero(t *testing.T) {
	d := setupAuthService(t, AuthOptions{SignupGrant: false})
	defer d.ctrl.Finish()

	d.members.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(nil, nil)
	d.hashSvc.EXPECT().Hash(gomock.Any()).Return("h", nil)
	d.members.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	d.ledger.EXPECT().OpenAccount(gomock.Any(), gomock.Any()).Return(domain.NewAccount("x", time.Now()), nil)
	d.tokenSvc.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("t", time.Now(), nil)

	resp, err := d.svc.Register(context.Background(), ports.RegisterRequest{Email: "bob@example.com", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), resp.Balance)
}

func TestAuthService_Register_AdminEmail(t *testing.T) {
	d := setupAuthService(t, AuthOptions{AdminEmails: []string{"Root@Example.com"}})
	defer d.ctrl.Finish()

	d.members.EXPECT().GetByEmail(gomock.Any(), "root@example.com").Return(nil, nil)
	d.hashSvc.EXPECT().Hash(gomock.Any()).Return("h", nil)
	d.members.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, m *domain.Member) error {
			assert.True(t, m.IsAdmin())
			return nil
		},
	)
	d.ledger.EXPECT().OpenAccount(gomock.Any(), gomock.Any()).Return(domain.NewAccount("x", time.Now()), nil)
	d.tokenSvc.EXPECT().Generate(gomock.Any(), domain.MemberRoleAdmin).Return("t", time.Now(), nil)

	_, err := d.svc.Register(context.Background(), ports.RegisterRequest{Email: "root@example.com", Password: "p"})
	require.NoError(t, err)
}

func TestAuthService_Register_GrantFailureDoesNotFailSignup(t *testing.T) {
	d := setupAuthService(t, AuthOptions{SignupGrant: true})
	defer d.ctrl.Finish()

	d.members.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(nil, nil)
	d.hashSvc.EXPECT().Hash(gomock.Any()).Return("h", nil)
	d.members.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	d.ledger.EXPECT().OpenAccount(gomock.Any(), gomock.Any()).Return(domain.NewAccount("x", time.Now()), nil)
	d.ledger.EXPECT().Allocate(gomock.Any(), gomock.Any(), domain.AllocationSignup).Return(nil, apperror.ErrStoreUnavailable(errors.New("down")))
	d.tokenSvc.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("t", time.Now(), nil)

	resp, err := d.svc.Register(context.Background(), ports.RegisterRequest{Email: "c@example.com", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), resp.Balance)
}

func TestAuthService_Register_EmailExists(t *testing.T) {
	t.Run("found on lookup", func(t *testing.T) {
		d := setupAuthService(t, AuthOptions{})
		defer d.ctrl.Finish()

		d.members.EXPECT().GetByEmail(gomock.Any(), "dup@example.com").Return(&domain.Member{ID: uuid.New()}, nil)

		_, err := d.svc.Register(context.Background(), ports.RegisterRequest{Email: "dup@example.com", Password: "p"})
		assert.ErrorIs(t, err, apperror.ErrEmailExists())
	})

	t.Run("lost insert race", func(t *testing.T) {
		d := setupAuthService(t, AuthOptions{})
		defer d.ctrl.Finish()

		d.members.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(nil, nil)
		d.hashSvc.EXPECT().Hash(gomock.Any()).Return("h", nil)
		d.members.EXPECT().Create(gomock.Any(), gomock.Any()).Return(domain.ErrEmailExists)

		_, err := d.svc.Register(context.Background(), ports.RegisterRequest{Email: "dup@example.com", Password: "p"})
		assert.ErrorIs(t, err, apperror.ErrEmailExists())
	})
}

func TestAuthService_Login_Success(t *testing.T) {
	d := setupAuthService(t, AuthOptions{})
	defer d.ctrl.Finish()

	member := &domain.Member{ID: uuid.New(), Email: "a@example.com", PasswordHash: "h", Role: domain.MemberRoleMember}
	expiry := time.Now().Add(time.Hour)

	d.members.EXPECT().GetByEmail(gomock.Any(), "a@example.com").Return(member, nil)
	d.hashSvc.EXPECT().Verify("secret", "h").Return(true, nil)
	d.tokenSvc.EXPECT().Generate(member.ID, domain.MemberRoleMember).Return("jwt", expiry, nil)

	token, exp, err := d.svc.Login(context.Background(), "A@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt", token)
	assert.Equal(t, expiry, exp)
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	t.Run("unknown email", func(t *testing.T) {
		d := setupAuthService(t, AuthOptions{})
		defer d.ctrl.Finish()

		d.members.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(nil, nil)

		_, _, err := d.svc.Login(context.Background(), "x@example.com", "p")
		assert.ErrorIs(t, err, apperror.ErrInvalidCredentials())
	})

	t.Run("wrong password", func(t *testing.T) {
		d := setupAuthService(t, AuthOptions{})
		defer d.ctrl.Finish()

		d.members.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(&domain.Member{PasswordHash: "h"}, nil)
		d.hashSvc.EXPECT().Verify("bad", "h").Return(false, nil)

		_, _, err := d.svc.Login(context.Background(), "x@example.com", "bad")
		assert.ErrorIs(t, err, apperror.ErrInvalidCredentials())
	})
}
