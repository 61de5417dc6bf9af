package postgres

import (
	"context"
	"testing"

	"governance-ledger/internal/core/domain"
	"governance-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"proposal_id", "direction", "votes"})
}

func TestProposalRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProposalRepo(mock)
	p := &domain.Proposal{
		ID:         "p1",
		Title:      "Fund it",
		Directions: []domain.VoteDirection{"yes", "no"},
		Votes:      map[domain.VoteDirection]int64{"yes": 0, "no": 0},
		CreatedBy:  "admin",
		CreatedAt:  testNow,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO proposals").
		WithArgs("p1", "Fund it", "", int64(0), "admin", testNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO proposal_directions").
		WithArgs("p1", "yes", 0, int64(0)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO proposal_directions").
		WithArgs("p1", "no", 1, int64(0)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProposalRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProposalRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM proposals WHERE id").
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "description", "total_participants", "created_by", "created_at"}).
			AddRow("p1", "Fund it", "desc", int64(3), "admin", testNow))
	mock.ExpectQuery("SELECT proposal_id, direction, votes FROM proposal_directions").
		WithArgs([]string{"p1"}).
		WillReturnRows(counterRows().
			AddRow("p1", "yes", int64(2)).
			AddRow("p1", "no", int64(1)).
			AddRow("p1", "abstain", int64(0)))

	p, err := repo.Get(context.Background(), "p1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, []domain.VoteDirection{"yes", "no", "abstain"}, p.Directions)
	assert.Equal(t, int64(2), p.Votes["yes"])
	assert.Equal(t, int64(3), p.TotalParticipants)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProposalRepo_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProposalRepo(mock)
	mock.ExpectQuery("SELECT .+ FROM proposals WHERE id").
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	p, err := repo.Get(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestProposalRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProposalRepo(mock)

	mock.ExpectQuery("SELECT COUNT").WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(5)))
	mock.ExpectQuery("SELECT .+ FROM proposals ORDER BY created_at DESC").
		WithArgs(2, 2).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "description", "total_participants", "created_by", "created_at"}).
			AddRow("p3", "c", "", int64(0), "admin", testNow).
			AddRow("p4", "d", "", int64(1), "admin", testNow))
	mock.ExpectQuery("SELECT proposal_id, direction, votes FROM proposal_directions").
		WithArgs([]string{"p3", "p4"}).
		WillReturnRows(counterRows().
			AddRow("p3", "yes", int64(0)).
			AddRow("p4", "yes", int64(1)))

	items, total, err := repo.List(context.Background(), ports.ProposalListParams{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[1].Votes["yes"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProposalRepo_IncrementVote(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProposalRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE proposal_directions SET votes = votes \\+ 1").
		WithArgs("p1", "yes").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("UPDATE proposals SET total_participants").
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows([]string{"total_participants"}).AddRow(int64(4)))
	mock.ExpectQuery("SELECT proposal_id, direction, votes FROM proposal_directions").
		WithArgs([]string{"p1"}).
		WillReturnRows(counterRows().AddRow("p1", "yes", int64(3)).AddRow("p1", "no", int64(1)))
	mock.ExpectCommit()

	tally, err := repo.IncrementVote(context.Background(), "p1", "yes")
	require.NoError(t, err)
	assert.Equal(t, int64(4), tally.TotalParticipants)
	assert.Equal(t, int64(3), tally.Counts["yes"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProposalRepo_IncrementVote_Misses(t *testing.T) {
	tests := []struct {
		name   string
		exists bool
		want   error
	}{
		{"unknown proposal", false, domain.ErrProposalNotFound},
		{"unconfigured direction", true, domain.ErrDirectionNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			repo := NewProposalRepo(mock)

			mock.ExpectBegin()
			mock.ExpectExec("UPDATE proposal_directions").
				WithArgs("p1", "maybe").
				WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			mock.ExpectQuery("SELECT EXISTS").
				WithArgs("p1").
				WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(tt.exists))
			mock.ExpectRollback()

			_, err = repo.IncrementVote(context.Background(), "p1", "maybe")
			assert.ErrorIs(t, err, tt.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestProposalRepo_Stats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProposalRepo(mock)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\), COALESCE").
		WillReturnRows(pgxmock.NewRows([]string{"count", "sum"}).AddRow(int64(2), int64(7)))
	mock.ExpectQuery("SELECT direction, COALESCE").
		WillReturnRows(pgxmock.NewRows([]string{"direction", "sum"}).
			AddRow("yes", int64(5)).
			AddRow("no", int64(2)))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalProposals)
	assert.Equal(t, int64(7), stats.TotalVotes)
	assert.Equal(t, int64(5), stats.ByDirection["yes"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
