package validation

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("name", "Push day"))

	err := ValidateName("name", "   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "name", verr.Field)

	long := make([]rune, 101)
	for i := range long {
		long[i] = 'é'
	}
	assert.ErrorIs(t, ValidateName("name", string(long)), ErrInvalid)
}

func TestValidatePositive(t *testing.T) {
	assert.NoError(t, ValidatePositive("value", 0.1))
	for _, v := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		assert.ErrorIs(t, ValidatePositive("value", v), ErrInvalid)
	}
	assert.NoError(t, ValidateNonNegative("value", 0))
	assert.ErrorIs(t, ValidateNonNegative("value", -0.5), ErrInvalid)
}

func TestValidateDay(t *testing.T) {
	assert.NoError(t, ValidateDay("date", "2024-02-29"))
	assert.ErrorIs(t, ValidateDay("date", "2023-02-29"), ErrInvalid)
	assert.ErrorIs(t, ValidateDay("date", "01/02/2024"), ErrInvalid)
}

func TestValidateOneOf(t *testing.T) {
	assert.NoError(t, ValidateOneOf("unit", "kg", []string{"kg", "lb"}))
	assert.ErrorIs(t, ValidateOneOf("unit", "stone", []string{"kg", "lb"}), ErrInvalid)
}

func TestValidateWeekdays(t *testing.T) {
	assert.NoError(t, ValidateWeekdays("weekdays", []int{0, 3, 6}))
	assert.ErrorIs(t, ValidateWeekdays("weekdays", []int{7}), ErrInvalid)
	assert.ErrorIs(t, ValidateWeekdays("weekdays", []int{1, 1}), ErrInvalid)
}
