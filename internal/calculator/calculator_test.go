package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IBSentinel/internal/model"
)

func TestStreaks(t *testing.T) {
	tests := []struct {
		name      string
		seq       []bool
		wantTrue  int
		wantFalse int
	}{
		{"empty", nil, 0, 0},
		{"mixed", []bool{true, true, false, true, true, true, false, false}, 3, 2},
		{"all true", []bool{true, true, true}, 3, 0},
		{"all false", []bool{false, false}, 0, 2},
		{"single", []bool{false}, 0, 1},
		{"alternating", []bool{true, false, true, false}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotTrue, gotFalse := Streaks(tt.seq)
			assert.Equal(t, tt.wantTrue, gotTrue)
			assert.Equal(t, tt.wantFalse, gotFalse)
		})
	}
}

func TestInitialBalance(t *testing.T) {
	bars := []model.Bar{
		{High: 101, Low: 99},
		{High: 103, Low: 100},
		{High: 102, Low: 98.5},
	}
	high, low, err := InitialBalance(bars)
	require.NoError(t, err)
	assert.Equal(t, 103.0, high)
	assert.Equal(t, 98.5, low)
	assert.Equal(t, 100.75, Midpoint(high, low))

	_, _, err = InitialBalance(nil)
	assert.ErrorIs(t, err, ErrNoBars)
}

func TestHighestLowest(t *testing.T) {
	bars := []model.Bar{{High: 5, Low: 1}, {High: 7, Low: 2}}
	h, err := HighestHigh(bars)
	require.NoError(t, err)
	assert.Equal(t, 7.0, h)
	l, err := LowestLow(bars)
	require.NoError(t, err)
	assert.Equal(t, 1.0, l)

	_, err = HighestHigh(nil)
	assert.ErrorIs(t, err, ErrNoBars)
}

func TestPercentOfRange(t *testing.T) {
	assert.Equal(t, 50.0, PercentOfRange(5, 10))
	assert.Equal(t, 0.0, PercentOfRange(5, 0))
}

func TestMeanMedianRate(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 2.0, Mean([]float64{1, 2, 3}))

	vals := []float64{5, 1, 3}
	assert.Equal(t, 3.0, Median(vals))
	assert.Equal(t, []float64{5, 1, 3}, vals)
	assert.Equal(t, 2.5, Median([]float64{4, 1, 2, 3}))
	assert.Equal(t, 0.0, Median(nil))

	assert.Equal(t, 25.0, Rate(1, 4))
	assert.Equal(t, 0.0, Rate(1, 0))
}
