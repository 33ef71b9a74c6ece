package level

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
)

func TestLevelFor(t *testing.T) {
	c := Default()
	tests := []struct {
		xp   int
		want int
	}{
		{-5, 1},
		{0, 1},
		{99, 1},
		{100, 2},
		{249, 2},
		{250, 3},
		{999, 4},
		{1000, 5},
		{8000, 8},
		{1_000_000, 8},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.LevelFor(tt.xp), "xp=%d", tt.xp)
	}
}

func TestLevelMonotonic(t *testing.T) {
	c := Default()
	prev := c.LevelFor(0)
	for xp := 0; xp <= 9000; xp += 7 {
		lvl := c.LevelFor(xp)
		assert.GreaterOrEqual(t, lvl, prev)
		prev = lvl
	}
}

func TestNewCalculator_Validation(t *testing.T) {
	_, err := NewCalculator(nil)
	assert.True(t, shared.IsValidation(err))

	_, err = NewCalculator([]int{10, 100})
	assert.True(t, shared.IsValidation(err))

	_, err = NewCalculator([]int{0, 100, 100})
	assert.True(t, shared.IsValidation(err))

	c, err := NewCalculator([]int{0, 10})
	require.NoError(t, err)
	assert.Equal(t, 2, c.MaxLevel())
}

func TestNextLevelXPAndProgress(t *testing.T) {
	c := Default()

	next, ok := c.NextLevelXP(150)
	assert.True(t, ok)
	assert.Equal(t, 250, next)
	assert.InDelta(t, 33.33, c.ProgressToNext(150), 0.01)

	_, ok = c.NextLevelXP(9000)
	assert.False(t, ok)
	assert.Equal(t, 100.0, c.ProgressToNext(9000))
	assert.Equal(t, 0.0, c.ProgressToNext(0))
}

func TestChange(t *testing.T) {
	c := Default()
	up := c.Compare(1, 100)
	assert.True(t, up.IsUp())
	assert.True(t, up.Changed())

	same := c.Compare(2, 120)
	assert.False(t, same.Changed())

	down := c.Compare(3, 120)
	assert.True(t, down.Changed())
	assert.False(t, down.IsUp())
}
