package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/templui/fitsync/internal/db"
	"github.com/templui/fitsync/internal/model"
	"github.com/templui/fitsync/internal/repository"
)

var testNow = time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func newRecords(t *testing.T) repository.RecordRepository {
	t.Helper()
	database, err := db.Open("sqlite", db.SQLiteDSN(filepath.Join(t.TempDir(), "service.db")))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return repository.NewRecordRepository(database)
}

func session(userID string) *model.Session {
	return &model.Session{UserID: userID, Token: "tok-" + userID, Location: time.UTC}
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	require.NoError(t, err)
	return d
}

// countingNotifier records how often it was told about a change.
type countingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *countingNotifier) Changed(context.Context, *model.Session) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}
