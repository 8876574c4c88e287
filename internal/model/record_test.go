package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFields_Merge(t *testing.T) {
	base := Fields{"a": 1, "b": 2}
	merged := base.Merge(Fields{"b": 3, "c": 4})

	assert.Equal(t, Fields{"a": 1, "b": 3, "c": 4}, merged)
	assert.Equal(t, Fields{"a": 1, "b": 2}, base, "receiver is not modified")
}

func TestFields_ScanRoundTrip(t *testing.T) {
	v, err := Fields{"name": "oats", "calories": 150}.Value()
	require.NoError(t, err)

	var f Fields
	require.NoError(t, f.Scan(v))
	assert.Equal(t, "oats", f.String("name"))

	n, ok := f.Number("calories")
	require.True(t, ok)
	assert.Equal(t, 150.0, n)

	require.NoError(t, f.Scan(nil))
	assert.Nil(t, f)
}

func TestToRecordFromRecord(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	meal := &Meal{
		Meta:     Meta{ID: "m1", UserID: "u1", CreatedAt: created},
		Date:     "2024-03-01",
		Type:     MealLunch,
		Name:     "soup",
		Calories: 320,
	}

	rec, err := ToRecord(meal)
	require.NoError(t, err)
	assert.Equal(t, CollectionMeals, rec.Collection)
	assert.Equal(t, "m1", rec.ID)
	assert.Equal(t, "u1", rec.UserID)
	assert.NotContains(t, rec.Fields, "ID", "identity stays out of the field bag")
	assert.Equal(t, "soup", rec.Fields.String("name"))

	rec.Seq = 9
	back, err := FromRecord[Meal](*rec)
	require.NoError(t, err)
	assert.Equal(t, "soup", back.Name)
	assert.Equal(t, 320.0, back.Calories)
	assert.Equal(t, int64(9), back.Order())
	assert.Equal(t, created, back.CreatedAt)
}

func TestFromRecord_WrongCollection(t *testing.T) {
	_, err := FromRecord[Meal](Record{Collection: CollectionWorkouts})
	assert.ErrorIs(t, err, ErrWrongCollection)
}

func TestPatchFields_OnlySetKeys(t *testing.T) {
	calories := 2000.0
	fields, err := PatchFields(NutritionGoalPatch{Calories: &calories})
	require.NoError(t, err)
	assert.Equal(t, Fields{"calories": 2000.0}, fields)
}

func TestCompactChanges(t *testing.T) {
	changes := []Change{
		{Seq: 1, Collection: "c", RecordID: "a", Op: ChangeUpsert},
		{Seq: 2, Collection: "c", RecordID: "b", Op: ChangeUpsert},
		{Seq: 3, Collection: "c", RecordID: "a", Op: ChangeDelete},
		{Seq: 4, Collection: "d", RecordID: "a", Op: ChangeUpsert},
	}

	got := CompactChanges(changes)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{2, 3, 4}, []int64{got[0].Seq, got[1].Seq, got[2].Seq})
}

func TestDataset_Apply(t *testing.T) {
	at := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	ds := &Dataset{OwnerID: "u1", Records: []Record{
		{ID: "a", Collection: "c", UserID: "u1", Fields: Fields{"v": 1}},
		{ID: "b", Collection: "c", UserID: "u1", Fields: Fields{"v": 2}},
		{ID: "c", Collection: "c", UserID: "u1", Fields: Fields{"v": 3}},
	}}

	ds.Apply([]Change{
		{Collection: "c", RecordID: "a", Op: ChangeDelete},
		{Collection: "c", RecordID: "c", Op: ChangeUpsert, Fields: Fields{"v": 30}, ChangedAt: at},
		{Collection: "c", RecordID: "d", UserID: "u1", Op: ChangeUpsert, Fields: Fields{"v": 4}, ChangedAt: at},
		{Collection: "c", RecordID: "missing", Op: ChangeDelete},
	})

	byID := map[string]Record{}
	for _, r := range ds.Records {
		byID[r.ID] = r
	}
	require.Len(t, byID, 3)
	assert.NotContains(t, byID, "a")
	assert.Equal(t, 30, byID["c"].Fields["v"])
	assert.Equal(t, at, byID["c"].UpdatedAt)
	assert.Equal(t, 4, byID["d"].Fields["v"])
	assert.Equal(t, 2, byID["b"].Fields["v"])
}

func TestDataset_ApplyKeepsOrderAndCreationTime(t *testing.T) {
	created := time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC)
	changed := time.Date(2024, 1, 2, 7, 0, 0, 0, time.UTC)
	ds := &Dataset{OwnerID: "u1", Records: []Record{
		{ID: "a", Collection: "c", UserID: "u1"},
		{ID: "b", Collection: "c", UserID: "u1"},
		{ID: "c", Collection: "c", UserID: "u1"},
		{ID: "d", Collection: "c", UserID: "u1"},
	}}

	ds.Apply([]Change{
		{Collection: "c", RecordID: "a", Op: ChangeDelete},
		{Collection: "c", RecordID: "e", UserID: "u1", Op: ChangeUpsert, ChangedAt: changed, CreatedAt: &created},
		{Collection: "c", RecordID: "f", UserID: "u1", Op: ChangeUpsert, ChangedAt: changed},
		{Collection: "c", RecordID: "c", Op: ChangeDelete},
		{Collection: "c", RecordID: "b", Op: ChangeUpsert, Fields: Fields{"v": 1}, ChangedAt: changed},
	})

	var ids []string
	for _, r := range ds.Records {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"b", "d", "e", "f"}, ids)
	assert.Equal(t, 1, ds.Records[0].Fields["v"], "index survives deletes")
	assert.Equal(t, created, ds.Records[2].CreatedAt)
	assert.Equal(t, changed, ds.Records[2].UpdatedAt)
	assert.Equal(t, changed, ds.Records[3].CreatedAt, "older changes fall back to the change time")
}

func TestNutritionGoalPatch_Apply(t *testing.T) {
	water := 2500
	g := NutritionGoalPatch{WaterML: &water}.Apply(NutritionGoal{Calories: 2000, WaterML: 2000})
	assert.Equal(t, 2000.0, g.Calories)
	assert.Equal(t, 2500, g.WaterML)
}
