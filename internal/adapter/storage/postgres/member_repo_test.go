package postgres

import (
	"context"
	"testing"
	"time"

	"governance-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMember() *domain.Member {
	wallet := "0xabc0000000000000000000000000000000000001"
	return &domain.Member{
		ID:            uuid.New(),
		Email:         "alice@example.com",
		PasswordHash:  "$argon2id$hash",
		WalletAddress: &wallet,
		Role:          domain.MemberRoleMember,
		CreatedAt:     testNow,
		UpdatedAt:     testNow,
	}
}

func memberRow(m *domain.Member) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "email", "password_hash", "wallet_address", "role", "created_at", "updated_at"}).
		AddRow(m.ID, m.Email, m.PasswordHash, m.WalletAddress, string(m.Role), m.CreatedAt, m.UpdatedAt)
}

func TestMemberRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMemberRepo(mock)
	m := newTestMember()

	mock.ExpectExec("INSERT INTO members").
		WithArgs(m.ID, m.Email, m.PasswordHash, m.WalletAddress, "member", testNow, testNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), m))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepo_Create_DuplicateEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMemberRepo(mock)
	m := newTestMember()

	mock.ExpectExec("INSERT INTO members").
		WithArgs(m.ID, m.Email, m.PasswordHash, m.WalletAddress, "member", testNow, testNow).
		WillReturnError(&pgconn.PgError{Code: codeUniqueViolation})

	assert.ErrorIs(t, repo.Create(context.Background(), m), domain.ErrEmailExists)
}

func TestMemberRepo_GetByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMemberRepo(mock)
	m := newTestMember()

	mock.ExpectQuery("SELECT .+ FROM members WHERE email").
		WithArgs(m.Email).
		WillReturnRows(memberRow(m))

	got, err := repo.GetByEmail(context.Background(), m.Email)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, domain.MemberRoleMember, got.Role)
	assert.Equal(t, *m.WalletAddress, *got.WalletAddress)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMemberRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM members WHERE id").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestReceiptRepo_Claim(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReceiptRepo(mock)
	rc := &domain.VoteReceipt{ProposalID: "p1", VoterAddress: "0xabc", Direction: "yes", CastAt: testNow}

	mock.ExpectExec("INSERT INTO vote_receipts").
		WithArgs("p1", "0xabc", "yes", testNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO vote_receipts").
		WithArgs("p1", "0xabc", "yes", testNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	first, err := repo.Claim(context.Background(), rc)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := repo.Claim(context.Background(), rc)
	require.NoError(t, err)
	assert.False(t, second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReceiptRepo_Release(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReceiptRepo(mock)

	mock.ExpectExec("DELETE FROM vote_receipts").
		WithArgs("p1", "0xabc").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repo.Release(context.Background(), "p1", "0xabc"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)
	memberID := uuid.New()
	log := &domain.AuditLog{
		ID:           uuid.New(),
		MemberID:     &memberID,
		Action:       domain.AuditActionVote,
		ResourceType: "proposal",
		ResourceID:   "p1",
		IPAddress:    "127.0.0.1",
		CreatedAt:    testNow,
	}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(log.ID, log.MemberID, "VOTE", "proposal", "p1", "", "127.0.0.1", testNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), log))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_ListByMember(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)
	memberID := uuid.New()
	since := testNow.AddDate(0, 0, -30)
	newer, older := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM audit_logs\s+WHERE member_id = \$1 AND created_at >= \$2\s+ORDER BY created_at DESC`).
		WithArgs(memberID, since).
		WillReturnRows(pgxmock.NewRows([]string{"id", "member_id", "action", "resource_type", "resource_id", "details", "ip_address", "created_at"}).
			AddRow(newer, &memberID, "TRANSFER", "transfer", "t1", "", "10.0.0.1", testNow).
			AddRow(older, &memberID, "LOGIN", "session", "", "", "10.0.0.1", testNow.Add(-time.Hour)))

	logs, err := repo.ListByMember(context.Background(), memberID, since)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, newer, logs[0].ID)
	assert.Equal(t, domain.AuditActionTransfer, logs[0].Action)
	assert.Equal(t, memberID, *logs[0].MemberID)
	assert.Equal(t, domain.AuditActionLogin, logs[1].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_ActivityByAction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)
	alice, bob := uuid.New(), uuid.New()

	mock.ExpectQuery(`GROUP BY action\s+HAVING COUNT\(\*\) > \$2\s+ORDER BY total_events DESC`).
		WithArgs((*uuid.UUID)(nil), int64(10)).
		WillReturnRows(pgxmock.NewRows([]string{"action", "total_events", "members"}).
			AddRow("LOGIN", int64(25), []string{alice.String(), bob.String()}).
			AddRow("REGISTER", int64(11), []string{}))

	out, err := repo.ActivityByAction(context.Background(), nil, 10)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, domain.AuditActionLogin, out[0].Action)
	assert.Equal(t, int64(25), out[0].TotalEvents)
	assert.Equal(t, []uuid.UUID{alice, bob}, out[0].MemberIDs)
	assert.Empty(t, out[1].MemberIDs)

	mock.ExpectQuery(`FROM audit_logs`).
		WithArgs(&alice, int64(10)).
		WillReturnRows(pgxmock.NewRows([]string{"action", "total_events", "members"}).
			AddRow("VOTE", int64(12), []string{"not-a-uuid"}))

	_, err = repo.ActivityByAction(context.Background(), &alice, 10)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
