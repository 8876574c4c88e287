package syncer

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

type fakeRemote struct {
	mu       sync.Mutex
	pushErrs []error
	pushes   [][]model.Change
	calls    int
	dataset  *model.Dataset
	pullErr  error

	// When set, PushBatch signals entered and waits for release.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeRemote) PushBatch(ctx context.Context, token, ownerID string, changes []model.Change) error {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.pushErrs) > 0 {
		err := f.pushErrs[0]
		f.pushErrs = f.pushErrs[1:]
		if err != nil {
			return err
		}
	}
	f.pushes = append(f.pushes, changes)
	return nil
}

func (f *fakeRemote) PullAll(ctx context.Context, token, ownerID string) (*model.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pullErr != nil {
		return nil, f.pullErr
	}
	if f.dataset == nil {
		return &model.Dataset{OwnerID: ownerID}, nil
	}
	return f.dataset, nil
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	engine  *Engine
	records repository.RecordRepository
	changes repository.ChangeRepository
	states  repository.SyncStateRepository
	remote  *fakeRemote
	clock   *clock
	session *model.Session
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	database, err := db.Open("sqlite", db.SQLiteDSN(filepath.Join(t.TempDir(), "sync.db")))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	f := &fixture{
		records: repository.NewRecordRepository(database),
		changes: repository.NewChangeRepository(database),
		states:  repository.NewSyncStateRepository(database),
		remote:  &fakeRemote{},
		clock:   &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		session: &model.Session{UserID: "u1", Token: "tok"},
	}
	opts.Now = f.clock.Now
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Millisecond
	}
	f.engine = NewEngine(f.records, f.changes, f.states, f.remote, opts)
	return f
}

func (f *fixture) write(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, f.records.Insert(context.Background(), &model.Record{
			Collection: model.CollectionMeals,
			UserID:     f.session.UserID,
			Fields:     model.Fields{"name": "meal"},
		}))
	}
}

func (f *fixture) pending(t *testing.T) int {
	t.Helper()
	n, err := f.changes.CountPending(context.Background(), f.session.UserID)
	require.NoError(t, err)
	return n
}
