package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type goal struct {
	date     time.Time
	seq      int64
	calories int
}

func (g goal) EffectiveAt() time.Time { return g.date }
func (g goal) Order() int64           { return g.seq }

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDay(s, time.UTC)
	require.NoError(t, err)
	return d
}

func TestResolveAsOf(t *testing.T) {
	history := []goal{
		{date: day(t, "2024-03-01"), seq: 2, calories: 2200},
		{date: day(t, "2024-01-01"), seq: 1, calories: 2000},
	}
	fallback := func() goal { return goal{calories: 1800} }

	tests := []struct {
		ref  string
		want int
	}{
		{"2024-02-01", 2000},
		{"2024-04-01", 2200},
		{"2023-12-01", 1800},
		{"2024-03-01", 2200},
		{"2024-01-01", 2000},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got := ResolveOr(history, day(t, tt.ref), time.UTC, fallback)
			assert.Equal(t, tt.want, got.calories)
		})
	}
}

func TestResolveAsOf_IncludesWholeReferenceDay(t *testing.T) {
	lateEvening := day(t, "2024-01-01").Add(23*time.Hour + 30*time.Minute)
	history := []goal{{date: lateEvening, seq: 1, calories: 2000}}

	got, ok := ResolveAsOf(history, day(t, "2024-01-01"), time.UTC)
	require.True(t, ok)
	assert.Equal(t, 2000, got.calories)
}

func TestResolveAsOf_TieGoesToLastInserted(t *testing.T) {
	d := day(t, "2024-01-01")
	history := []goal{
		{date: d, seq: 7, calories: 2100},
		{date: d, seq: 3, calories: 2000},
	}

	got, ok := ResolveAsOf(history, d, time.UTC)
	require.True(t, ok)
	assert.Equal(t, 2100, got.calories)

	latest, ok := Latest(history)
	require.True(t, ok)
	assert.Equal(t, int64(7), latest.seq)
}

func TestResolveAsOf_Empty(t *testing.T) {
	_, ok := ResolveAsOf[goal](nil, time.Now(), time.UTC)
	assert.False(t, ok)

	_, ok = Latest[goal](nil)
	assert.False(t, ok)
}

func TestResolveAsOf_RespectsLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 2024-01-02 01:00 in Tokyo is still 2024-01-01 in UTC.
	entry := goal{date: time.Date(2024, 1, 1, 16, 0, 0, 0, time.UTC), seq: 1, calories: 2000}
	ref := time.Date(2024, 1, 1, 12, 0, 0, 0, tokyo)

	_, ok := ResolveAsOf([]goal{entry}, ref, tokyo)
	assert.False(t, ok)

	_, ok = ResolveAsOf([]goal{entry}, ref, time.UTC)
	assert.True(t, ok)
}

func TestSort(t *testing.T) {
	d := day(t, "2024-01-01")
	history := []goal{
		{date: d.AddDate(0, 1, 0), seq: 1},
		{date: d, seq: 5},
		{date: d, seq: 2},
	}
	Sort(history)
	assert.Equal(t, []int64{2, 5, 1}, []int64{history[0].seq, history[1].seq, history[2].seq})
}

func TestDays(t *testing.T) {
	got := Days(day(t, "2024-02-28"), day(t, "2024-03-01"), time.UTC)
	assert.Equal(t, []string{"2024-02-28", "2024-02-29", "2024-03-01"}, got)

	assert.Empty(t, Days(day(t, "2024-03-02"), day(t, "2024-03-01"), time.UTC))
}

func TestEndOfDay(t *testing.T) {
	end := EndOfDay(day(t, "2024-01-01").Add(5*time.Hour), time.UTC)
	assert.Equal(t, time.Date(2024, 1, 1, 23, 59, 59, 999999999, time.UTC), end)
}
