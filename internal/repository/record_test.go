package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/fitsync/internal/model"
)

func TestInsert_AssignsIdentity(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(openTestDB(t))

	first := &model.Record{Collection: "meals", UserID: "u1", Fields: model.Fields{"name": "oats"}}
	second := &model.Record{Collection: "meals", UserID: "u1"}
	require.NoError(t, repo.Insert(ctx, first))
	require.NoError(t, repo.Insert(ctx, second))

	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())
	assert.Greater(t, second.Seq, first.Seq)

	got, err := repo.Get(ctx, "meals", first.ID)
	require.NoError(t, err)
	assert.Equal(t, "oats", got.Fields.String("name"))
	assert.Equal(t, "u1", got.UserID)
}

func TestInsert_DuplicateIdentifier(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(openTestDB(t))

	require.NoError(t, repo.Insert(ctx, &model.Record{ID: "r1", Collection: "meals", UserID: "u1"}))
	err := repo.Insert(ctx, &model.Record{ID: "r1", Collection: "meals", UserID: "u1"})
	assert.ErrorIs(t, err, ErrDuplicateIdentifier)

	// Same identifier in another collection is a different record.
	require.NoError(t, repo.Insert(ctx, &model.Record{ID: "r1", Collection: "workouts", UserID: "u1"}))
}

func TestUpdate_MergesFields(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(openTestDB(t))

	rec := &model.Record{Collection: "c", UserID: "u1", Fields: model.Fields{"a": 1, "b": 2}}
	require.NoError(t, repo.Insert(ctx, rec))

	updated, err := repo.Update(ctx, "c", rec.ID, model.Fields{"b": 3})
	require.NoError(t, err)
	assert.Equal(t, model.Fields{"a": float64(1), "b": float64(3)}, updated.Fields)

	got, err := repo.Get(ctx, "c", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Fields{"a": float64(1), "b": float64(3)}, got.Fields)
}

func TestUpdate_NotFound(t *testing.T) {
	repo := NewRecordRepository(openTestDB(t))

	_, err := repo.Update(context.Background(), "c", "missing", model.Fields{"a": 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_Idempotent(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	repo := NewRecordRepository(database)
	changes := NewChangeRepository(database)

	rec := &model.Record{Collection: "c", UserID: "u1"}
	require.NoError(t, repo.Insert(ctx, rec))

	require.NoError(t, repo.Delete(ctx, "c", rec.ID))
	require.NoError(t, repo.Delete(ctx, "c", rec.ID))
	require.NoError(t, repo.Delete(ctx, "c", "never-existed"))

	_, err := repo.Get(ctx, "c", rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	pending, err := changes.Pending(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, model.ChangeUpsert, pending[0].Op)
	assert.Equal(t, model.ChangeDelete, pending[1].Op)
	assert.Nil(t, pending[1].Fields)
}

func TestQuery_Predicate(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(openTestDB(t))

	for _, r := range []*model.Record{
		{Collection: "water_intake", UserID: "u1", Fields: model.Fields{"date": "2024-01-01", "amount_ml": 200}},
		{Collection: "water_intake", UserID: "u1", Fields: model.Fields{"date": "2024-01-02", "amount_ml": 300}},
		{Collection: "water_intake", UserID: "u2", Fields: model.Fields{"date": "2024-01-01", "amount_ml": 400}},
		{Collection: "meals", UserID: "u1", Fields: model.Fields{"date": "2024-01-01"}},
	} {
		require.NoError(t, repo.Insert(ctx, r))
	}

	got, err := repo.Query(ctx, "water_intake", And(ByOwner("u1"), FieldEquals("date", "2024-01-01")))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u1", got[0].UserID)

	got, err = repo.Query(ctx, "water_intake", FieldEquals("amount_ml", 400))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u2", got[0].UserID)

	got, err = repo.QueryOwned(ctx, "water_intake", "u1", nil)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = repo.Query(ctx, "nothing", All)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecords_SurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "durable.db")

	first := openTestDBAt(t, path)
	rec := &model.Record{Collection: "c", UserID: "u1", Fields: model.Fields{"k": "v"}}
	require.NoError(t, NewRecordRepository(first).Insert(ctx, rec))
	require.NoError(t, first.Close())

	second := openTestDBAt(t, path)
	got, err := NewRecordRepository(second).Get(ctx, "c", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "v", got.Fields.String("k"))
}

func TestReplace_ReappliesPendingChanges(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	repo := NewRecordRepository(database)
	changes := NewChangeRepository(database)

	pushed := &model.Record{ID: "old", Collection: "c", UserID: "u1", Fields: model.Fields{"v": "local"}}
	require.NoError(t, repo.Insert(ctx, pushed))
	all, err := changes.Pending(ctx, "u1", 0)
	require.NoError(t, err)
	_, err = changes.MarkPushed(ctx, "u1", all[len(all)-1].Seq, pushed.CreatedAt)
	require.NoError(t, err)

	// Written after the last push; the remote has not seen it.
	unpushed := &model.Record{ID: "new", Collection: "c", UserID: "u1", Fields: model.Fields{"v": "mine"}}
	require.NoError(t, repo.Insert(ctx, unpushed))
	other := &model.Record{ID: "x", Collection: "c", UserID: "u2"}
	require.NoError(t, repo.Insert(ctx, other))

	remote := []model.Record{
		{ID: "r1", Collection: "c", UserID: "u1", Fields: model.Fields{"v": "remote"}},
		{ID: "new", Collection: "c", UserID: "u1", Fields: model.Fields{"v": "stale"}},
	}
	require.NoError(t, repo.Replace(ctx, "u1", remote))

	got, err := repo.QueryOwned(ctx, "c", "u1", nil)
	require.NoError(t, err)
	byID := map[string]model.Record{}
	for _, r := range got {
		byID[r.ID] = r
	}
	assert.Len(t, byID, 2)
	assert.NotContains(t, byID, "old")
	assert.Equal(t, "remote", byID["r1"].Fields.String("v"))
	assert.Equal(t, "mine", byID["new"].Fields.String("v"))

	_, err = repo.Get(ctx, "c", "x")
	assert.NoError(t, err, "other owners are untouched")

	count, err := changes.CountPending(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "reapplied change stays pending")
}

func TestReplace_AssignsSeqInCreationOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(openTestDB(t))
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	incoming := []model.Record{
		{ID: "late", Collection: "c", UserID: "u1", CreatedAt: base.Add(time.Hour)},
		{ID: "tie1", Collection: "c", UserID: "u1", CreatedAt: base},
		{ID: "tie2", Collection: "c", UserID: "u1", CreatedAt: base},
		{ID: "early", Collection: "c", UserID: "u1", CreatedAt: base.Add(-time.Hour)},
	}
	require.NoError(t, repo.Replace(ctx, "u1", incoming))
	assert.Equal(t, "late", incoming[0].ID, "caller's slice is not reordered")

	got, err := repo.Snapshot(ctx, "u1")
	require.NoError(t, err)
	var ids []string
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"early", "tie1", "tie2", "late"}, ids)
	assert.True(t, base.Add(-time.Hour).Equal(got[0].CreatedAt))
}

func TestChanges_CarryCreationTime(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	repo := NewRecordRepository(database)
	changes := NewChangeRepository(database)
	created := time.Date(2024, 3, 1, 6, 30, 0, 0, time.UTC)

	require.NoError(t, repo.Insert(ctx, &model.Record{ID: "r", Collection: "c", UserID: "u1", CreatedAt: created}))
	_, err := repo.Update(ctx, "c", "r", model.Fields{"v": 2})
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, "c", "r"))

	pending, err := changes.Pending(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	for _, c := range pending[:2] {
		require.NotNil(t, c.CreatedAt)
		assert.True(t, created.Equal(*c.CreatedAt))
		assert.True(t, created.Equal(c.RecordCreatedAt()))
	}
	assert.Nil(t, pending[2].CreatedAt)
}

func TestReplace_RejectsForeignRecords(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(openTestDB(t))

	require.NoError(t, repo.Insert(ctx, &model.Record{ID: "keep", Collection: "c", UserID: "u1"}))
	err := repo.Replace(ctx, "u1", []model.Record{{ID: "a", Collection: "c", UserID: "u2"}})
	require.Error(t, err)

	_, err = repo.Get(ctx, "c", "keep")
	assert.NoError(t, err, "failed replace rolls back")
}

func TestConcurrentReadersSeeWholeRecords(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(openTestDB(t))

	rec := &model.Record{Collection: "c", UserID: "u1", Fields: model.Fields{"a": 0, "b": 0}}
	require.NoError(t, repo.Insert(ctx, rec))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 25; i++ {
			_, err := repo.Update(ctx, "c", rec.ID, model.Fields{"a": i, "b": i})
			assert.NoError(t, err)
		}
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				got, err := repo.Get(ctx, "c", rec.ID)
				if !assert.NoError(t, err) {
					return
				}
				a, _ := got.Fields.Number("a")
				b, _ := got.Fields.Number("b")
				assert.Equal(t, a, b, "torn record")
			}
		}()
	}
	wg.Wait()
}
