package repository

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/templui/fitsync/internal/db"
)

// openTestDB opens a migrated SQLite database under t.TempDir().
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	return openTestDBAt(t, filepath.Join(t.TempDir(), "test.db"))
}

func openTestDBAt(t *testing.T, path string) *sqlx.DB {
	t.Helper()
	database, err := db.Open("sqlite", db.SQLiteDSN(path))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}
