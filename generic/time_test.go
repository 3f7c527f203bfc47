package generic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/wholesale-engine/generic"
)

func TestClock_AdvanceForward(t *testing.T) {
	c := generic.NewClock(0)

	require.NoError(t, c.Advance(3))
	require.NoError(t, c.Advance(9))

	assert.Equal(t, generic.Day(12), c.Now())
}

func TestClock_RejectsNonPositiveIncrement(t *testing.T) {
	for _, inc := range []int{0, -1, -30} {
		c := generic.NewClock(5)

		err := c.Advance(inc)

		var invalid *generic.InvalidDateIncrementError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, inc, invalid.Increment)
		assert.Equal(t, generic.Day(5), c.Now(), "clock must not move")
	}
}

func TestDay_Sub(t *testing.T) {
	assert.Equal(t, -10, generic.Day(0).Sub(10))
	assert.Equal(t, 2, generic.Day(12).Sub(10))
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, generic.IsNotFound(&generic.UnknownPartnerError{Key: "x"}))
	assert.True(t, generic.IsNotFound(&generic.UnknownTransactionError{ID: 4}))
	assert.True(t, generic.IsDuplicate(&generic.DuplicateProductError{Key: "p"}))
	assert.True(t, generic.IsClientError(&generic.InsufficientStockError{ProductKey: "p"}))
	assert.False(t, generic.IsClientError(&generic.UnknownProductError{Key: "p"}))
}
