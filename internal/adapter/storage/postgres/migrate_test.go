package postgres

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMigrations() fs.FS {
	return fstest.MapFS{
		"m/0002_second.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE second (id INT);\n-- +migrate Down\nDROP TABLE second;\n")},
		"m/0001_first.sql":  {Data: []byte("CREATE TABLE first (id INT);")},
		"m/README.md":       {Data: []byte("not a migration")},
	}
}

func TestUpSection(t *testing.T) {
	assert.Equal(t, "\nCREATE x;\n", upSection("-- +migrate Up\nCREATE x;\n-- +migrate Down\nDROP x;"))
	assert.Equal(t, "CREATE x;", upSection("CREATE x;"))
	assert.Equal(t, "\nCREATE x;", upSection("-- header\n-- +migrate Up\nCREATE x;"))
}

func TestApplyMigrations_InOrderSkippingApplied(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	mock.ExpectQuery("SELECT EXISTS .+ schema_migrations").
		WithArgs("0001_first.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectQuery("SELECT EXISTS .+ schema_migrations").
		WithArgs("0002_second.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE second").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").
		WithArgs("0002_second.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err = applyMigrations(context.Background(), mock, testMigrations(), "m", zerolog.Nop())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMigrations_RollsBackOnFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("0001_first.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE first").WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	err = applyMigrations(context.Background(), mock, testMigrations(), "m", zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0001_first.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	content, err := fs.ReadFile(migrationFS, "migrations/"+entries[0].Name())
	require.NoError(t, err)
	up := upSection(string(content))
	for _, table := range []string{"governance_accounts", "token_transactions", "token_transfers", "proposals", "proposal_directions", "vote_receipts", "members", "audit_logs"} {
		assert.Contains(t, up, "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.NotContains(t, up, "DROP TABLE")
}
