package schemaobj

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements_FunctionsUseGoSeparator(t *testing.T) {
	script := "CREATE FUNCTION dbo.fn_A() RETURNS INT AS BEGIN RETURN 1 END\nGO\nCREATE FUNCTION dbo.fn_B() RETURNS INT AS BEGIN RETURN 2 END\ngo\n"
	got := SplitStatements(script, "Functions.sql")
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "fn_A")
	assert.Contains(t, got[1], "fn_B")
}

func TestSplitStatements_FunctionFileNameIsCaseInsensitive(t *testing.T) {
	script := "SELECT 1;\nGO\nSELECT 2"
	got := SplitStatements(script, "my functions patch.sql")
	require.Len(t, got, 2)
}

func TestSplitStatements_GoInsideStatementIsNotASeparator(t *testing.T) {
	script := "CREATE FUNCTION dbo.fn_Go() RETURNS INT AS BEGIN RETURN 1 -- GO home\nEND"
	got := SplitStatements(script, "Functions.sql")
	require.Len(t, got, 1)
}

func TestSplitStatements_OthersUseSemicolons(t *testing.T) {
	script := "ALTER TABLE t ADD CONSTRAINT pk PRIMARY KEY (id);\n\nCREATE INDEX ix ON t (col);\n;\n"
	got := SplitStatements(script, "Adding primary keys and indexes.sql")
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "CONSTRAINT")
	assert.Contains(t, got[1], "INDEX")
}

func TestTolerantScript(t *testing.T) {
	assert.True(t, tolerantScript("Adding primary keys and indexes.sql"))
	assert.False(t, tolerantScript("Functions.sql"))
	assert.False(t, tolerantScript("functions.sql"))
	assert.False(t, tolerantScript("View dm_sessions.sql"))
	assert.False(t, tolerantScript("view dm_transactions.sql"))
}

const (
	indexScript = "ALTER TABLE rd_products ADD CONSTRAINT PK_rd_products PRIMARY KEY (prod_id);\n" +
		"CREATE INDEX ix_rd_transactions_session ON rd_transactions (session_id);\n"
	functionsScript = "CREATE FUNCTION dbo.fn_AmountCategory (@amount DECIMAL(18,2)) RETURNS NVARCHAR(10) AS BEGIN RETURN 'low' END\n" +
		"GO\n" +
		"CREATE FUNCTION dbo.fn_AgeCategory (@birthdate DATETIME2) RETURNS NVARCHAR(10) AS BEGIN RETURN 'adult' END\n"
	sessionsViewScript     = "CREATE VIEW dbo.dm_sessions AS SELECT session_id FROM dbo.rd_sessions\n"
	transactionsViewScript = "CREATE VIEW dbo.dm_transactions AS SELECT booking_id FROM dbo.rd_transactions\n"
)

func writeScripts(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"Adding primary keys and indexes.sql": indexScript,
		"Functions.sql":                       functionsScript,
		"View dm_sessions.sql":                sessionsViewScript,
		"View dm_transactions.sql":            transactionsViewScript,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func newTestBuilder(t *testing.T, dir string) (*Builder, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBuilder(db, dir, "test", nil), mock
}

func expectDrops(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectExec(`DROP FUNCTION dbo\.fn_AmountCategory`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DROP FUNCTION dbo\.fn_AgeCategory`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DROP VIEW dbo\.dm_sessions`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DROP VIEW dbo\.dm_transactions`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
}

func expectFunctionsVerified(mock sqlmock.Sqlmock, names ...string) {
	rows := sqlmock.NewRows([]string{"name"})
	for _, n := range names {
		rows.AddRow(n)
	}
	mock.ExpectQuery(`SELECT name FROM sys\.objects WHERE type = 'FN'`).WillReturnRows(rows)
}

func TestBuild_ExecutesScriptsInOrder(t *testing.T) {
	b, mock := newTestBuilder(t, writeScripts(t))

	expectDrops(mock)

	// index script: two semicolon statements
	mock.ExpectBegin()
	mock.ExpectExec(`ADD CONSTRAINT PK_rd_products`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX ix_rd_transactions_session`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	// functions: two GO batches, then existence check
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE FUNCTION dbo\.fn_AmountCategory`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE FUNCTION dbo\.fn_AgeCategory`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	expectFunctionsVerified(mock, "fn_AmountCategory", "fn_AgeCategory")

	// each view is a single statement
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE VIEW dbo\.dm_sessions`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE VIEW dbo\.dm_transactions`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, b.Build(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuild_IndexStatementFailureIsSkipped(t *testing.T) {
	b, mock := newTestBuilder(t, writeScripts(t))

	expectDrops(mock)

	// first index statement fails (already indexed), second still runs
	mock.ExpectBegin()
	mock.ExpectExec(`ADD CONSTRAINT PK_rd_products`).
		WillReturnError(errors.New("There is already a primary key"))
	mock.ExpectExec(`CREATE INDEX ix_rd_transactions_session`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE FUNCTION dbo\.fn_AmountCategory`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE FUNCTION dbo\.fn_AgeCategory`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	expectFunctionsVerified(mock, "fn_AmountCategory", "fn_AgeCategory")

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE VIEW dbo\.dm_sessions`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE VIEW dbo\.dm_transactions`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, b.Build(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuild_FunctionFailureAborts(t *testing.T) {
	b, mock := newTestBuilder(t, writeScripts(t))

	expectDrops(mock)

	mock.ExpectBegin()
	mock.ExpectExec(`ADD CONSTRAINT PK_rd_products`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX ix_rd_transactions_session`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE FUNCTION dbo\.fn_AmountCategory`).
		WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	err := b.Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Functions.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuild_MissingFunctionFailsVerification(t *testing.T) {
	b, mock := newTestBuilder(t, writeScripts(t))

	expectDrops(mock)

	mock.ExpectBegin()
	mock.ExpectExec(`ADD CONSTRAINT PK_rd_products`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX ix_rd_transactions_session`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE FUNCTION dbo\.fn_AmountCategory`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE FUNCTION dbo\.fn_AgeCategory`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	expectFunctionsVerified(mock, "fn_AmountCategory") // fn_AgeCategory missing

	err := b.Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fn_AgeCategory")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuild_DropFailureIsTolerated(t *testing.T) {
	b, mock := newTestBuilder(t, writeScripts(t))

	mock.ExpectBegin()
	mock.ExpectExec(`DROP FUNCTION dbo\.fn_AmountCategory`).
		WillReturnError(errors.New("permission denied"))
	mock.ExpectExec(`DROP FUNCTION dbo\.fn_AgeCategory`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DROP VIEW dbo\.dm_sessions`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DROP VIEW dbo\.dm_transactions`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(`ADD CONSTRAINT PK_rd_products`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX ix_rd_transactions_session`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE FUNCTION dbo\.fn_AmountCategory`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE FUNCTION dbo\.fn_AgeCategory`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	expectFunctionsVerified(mock, "fn_AmountCategory", "fn_AgeCategory")

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE VIEW dbo\.dm_sessions`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE VIEW dbo\.dm_transactions`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, b.Build(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuild_MissingScriptFile(t *testing.T) {
	dir := writeScripts(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "View dm_sessions.sql")))
	b, mock := newTestBuilder(t, dir)

	expectDrops(mock)

	mock.ExpectBegin()
	mock.ExpectExec(`ADD CONSTRAINT PK_rd_products`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX ix_rd_transactions_session`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE FUNCTION dbo\.fn_AmountCategory`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE FUNCTION dbo\.fn_AgeCategory`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	expectFunctionsVerified(mock, "fn_AmountCategory", "fn_AgeCategory")

	err := b.Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "View dm_sessions.sql")
}
