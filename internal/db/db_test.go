package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tables(t *testing.T, path string) []string {
	t.Helper()
	database, err := Init("sqlite", SQLiteDSN(path))
	require.NoError(t, err)
	defer Close(database)

	var names []string
	require.NoError(t, database.Select(&names,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'goose%' AND name NOT LIKE 'sqlite%' ORDER BY name`))
	return names
}

func TestOpen_CreatesDirectoryAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "fitsync.db")

	database, err := Open("sqlite", SQLiteDSN(path))
	require.NoError(t, err)
	require.NoError(t, Close(database))

	assert.Equal(t, []string{"access_tokens", "record_changes", "records", "sync_state"}, tables(t, path))
}

func TestMigrateDown_RollsBackOneStep(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fitsync.db")
	database, err := Open("sqlite", SQLiteDSN(path))
	require.NoError(t, err)

	require.NoError(t, MigrateDown(database.DB, "sqlite"))
	require.NoError(t, Close(database))
	assert.Equal(t, []string{"records"}, tables(t, path))
}

func TestSQLitePath(t *testing.T) {
	assert.Equal(t, "./data/app.db", sqlitePath("file:./data/app.db?_pragma=foreign_keys(1)"))
	assert.Equal(t, "/tmp/x.db", sqlitePath("/tmp/x.db"))
	assert.Equal(t, "postgres", getDialect("pgx"))
	assert.Equal(t, "sqlite3", getDialect("sqlite"))
}

func TestClose_Nil(t *testing.T) {
	assert.NoError(t, Close(nil))
}
