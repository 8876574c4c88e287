// Package temporal resolves versioned histories: the value in effect on a
// given day is the latest entry dated on or before the end of that day.
package temporal

import (
	"slices"
	"time"
)

// Versioned is an entry of an insert-only history.
type Versioned interface {
	EffectiveAt() time.Time
	// Order is the store's insertion position, used to break timestamp ties.
	Order() int64
}

// less orders entries by effective time, then by insertion.
func less[T Versioned](a, b T) bool {
	ea, eb := a.EffectiveAt(), b.EffectiveAt()
	if !ea.Equal(eb) {
		return ea.Before(eb)
	}
	return a.Order() < b.Order()
}

// ResolveAsOf returns the entry in effect at the end of ref's day in loc.
// Among entries with the same effective time the last inserted wins. The
// boolean is false when no entry is dated on or before that day.
func ResolveAsOf[T Versioned](history []T, ref time.Time, loc *time.Location) (T, bool) {
	cutoff := EndOfDay(ref, loc)

	var best T
	found := false
	for _, h := range history {
		if h.EffectiveAt().After(cutoff) {
			continue
		}
		if !found || less(best, h) {
			best = h
			found = true
		}
	}
	return best, found
}

// ResolveOr is ResolveAsOf with a fallback for an empty result.
func ResolveOr[T Versioned](history []T, ref time.Time, loc *time.Location, fallback func() T) T {
	if v, ok := ResolveAsOf(history, ref, loc); ok {
		return v
	}
	return fallback()
}

// Latest returns the newest entry regardless of date.
func Latest[T Versioned](history []T) (T, bool) {
	var best T
	if len(history) == 0 {
		return best, false
	}
	best = history[0]
	for _, h := range history[1:] {
		if less(best, h) {
			best = h
		}
	}
	return best, true
}

// Sort orders history oldest first, in place.
func Sort[T Versioned](history []T) {
	slices.SortStableFunc(history, func(a, b T) int {
		switch {
		case less(a, b):
			return -1
		case less(b, a):
			return 1
		}
		return 0
	})
}
