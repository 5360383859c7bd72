package testutil

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// WriteSQLiteFixture creates a SQLite database file at path and applies
// the given DDL/DML script.
func WriteSQLiteFixture(t testing.TB, path, script string) {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err, "fixture database should open")
	defer func() { require.NoError(t, db.Close(), "fixture database should close") }()

	_, err = db.Exec(script)
	require.NoError(t, err, "fixture script should apply")
}
