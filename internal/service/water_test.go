package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/fitsync/internal/model"
	"github.com/templui/fitsync/internal/validation"
)

func TestWater_AddAmountMerges(t *testing.T) {
	ctx := context.Background()
	records := newRecords(t)
	notify := &countingNotifier{}
	water := NewWaterService(records, notify)
	water.now = fixedNow
	s := session("u1")

	_, err := water.AddAmount(ctx, s, 250)
	require.NoError(t, err)
	got, err := water.AddAmount(ctx, s, 300)
	require.NoError(t, err)
	assert.Equal(t, 550, got.AmountML)
	assert.Equal(t, "2024-04-10", got.Date)

	rows, err := records.QueryOwned(ctx, model.CollectionWaterIntake, "u1", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "one record per owner and day")
	assert.Equal(t, 2, notify.count())

	other, err := water.AddAmountOn(ctx, s, date(t, "2024-04-09"), 100)
	require.NoError(t, err)
	assert.Equal(t, 100, other.AmountML)

	today, err := water.ForDay(ctx, s, testNow)
	require.NoError(t, err)
	assert.Equal(t, 550, today.AmountML)
}

func TestWater_FoldsDuplicates(t *testing.T) {
	ctx := context.Background()
	records := newRecords(t)
	water := NewWaterService(records, nil)
	s := session("u1")

	// Two records for the same day, as a merge from two devices could leave.
	for _, ml := range []float64{200, 300} {
		require.NoError(t, records.Insert(ctx, &model.Record{
			Collection: model.CollectionWaterIntake,
			UserID:     "u1",
			Fields:     model.Fields{"date": "2024-04-10", "amount_ml": ml},
		}))
	}

	got, err := water.AddAmountOn(ctx, s, date(t, "2024-04-10"), 100)
	require.NoError(t, err)
	assert.Equal(t, 600, got.AmountML)

	rows, err := records.QueryOwned(ctx, model.CollectionWaterIntake, "u1", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestWater_OwnersAreSeparate(t *testing.T) {
	ctx := context.Background()
	water := NewWaterService(newRecords(t), nil)
	water.now = fixedNow

	_, err := water.AddAmount(ctx, session("u1"), 500)
	require.NoError(t, err)
	got, err := water.AddAmount(ctx, session("u2"), 100)
	require.NoError(t, err)
	assert.Equal(t, 100, got.AmountML)
}

func TestWater_Rejects(t *testing.T) {
	ctx := context.Background()
	water := NewWaterService(newRecords(t), nil)

	_, err := water.AddAmount(ctx, session("u1"), 0)
	assert.ErrorIs(t, err, validation.ErrInvalid)

	_, err = water.AddAmount(ctx, nil, 100)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	got, err := water.ForDay(ctx, session("u1"), testNow)
	require.NoError(t, err)
	assert.Nil(t, got)
}
