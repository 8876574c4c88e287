package validation

import (
	"math"
	"slices"
	"time"
)

// ValidatePositive rejects zero, negative and non-finite numbers.
func ValidatePositive(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return invalid(field, "must be greater than zero")
	}
	return nil
}

func ValidateNonNegative(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return invalid(field, "must not be negative")
	}
	return nil
}

// ValidateDay checks a YYYY-MM-DD calendar day key.
func ValidateDay(field, day string) error {
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return invalid(field, "must be a date formatted YYYY-MM-DD")
	}
	return nil
}

// ValidateOneOf checks that v is one of the allowed values.
func ValidateOneOf(field, v string, allowed []string) error {
	if !slices.Contains(allowed, v) {
		return invalid(field, "must be one of %v", allowed)
	}
	return nil
}

// ValidateWeekdays accepts 0 (Sunday) through 6, without repeats.
func ValidateWeekdays(field string, days []int) error {
	seen := make(map[int]bool, len(days))
	for _, d := range days {
		if d < 0 || d > 6 {
			return invalid(field, "weekday %d out of range", d)
		}
		if seen[d] {
			return invalid(field, "weekday %d listed twice", d)
		}
		seen[d] = true
	}
	return nil
}
