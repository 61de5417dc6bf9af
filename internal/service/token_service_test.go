package service

import (
	"testing"
	"time"

	"governance-ledger/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret-key-for-unit-tests"

func TestJWTTokenService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, 24*time.Hour, "test-issuer")
	memberID := uuid.New()

	tokenStr, expiresAt, err := svc.Generate(memberID, domain.MemberRoleAdmin)
	require.NoError(t, err)
	assert.NotEmpty(t, tokenStr)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.Validate(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, memberID, claims.MemberID)
	assert.Equal(t, domain.MemberRoleAdmin, claims.Role)
}

func TestJWTTokenService_Rejections(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, 24*time.Hour, "issuer")

	expired, _, err := NewJWTTokenService(testJWTSecret, -time.Hour, "issuer").Generate(uuid.New(), domain.MemberRoleMember)
	require.NoError(t, err)

	otherSecret, _, err := NewJWTTokenService("secret-2", time.Hour, "issuer").Generate(uuid.New(), domain.MemberRoleMember)
	require.NoError(t, err)

	otherIssuer, _, err := NewJWTTokenService(testJWTSecret, time.Hour, "someone-else").Generate(uuid.New(), domain.MemberRoleMember)
	require.NoError(t, err)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, memberClaims{
		Role: "superuser",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Issuer:    "issuer",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"different secret", otherSecret},
		{"different issuer", otherIssuer},
		{"unknown role", badRole},
		{"garbage", "not.a.valid.jwt"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Validate(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestJWTTokenService_RejectsNoneAlgorithm(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, time.Hour, "issuer")

	token := jwt.NewWithClaims(jwt.SigningMethodNone, memberClaims{
		Role: domain.MemberRoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Issuer:    "issuer",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Validate(unsigned)
	assert.Error(t, err)
}
