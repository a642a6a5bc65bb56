package calculator

import (
	"errors"
	"math"

	"IBSentinel/internal/model"
)

// ErrNoBars is returned when a range is requested over an empty window.
var ErrNoBars = errors.New("no bars provided")

// InitialBalance scans the IB window and returns its high and low.
func InitialBalance(bars []model.Bar) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, ErrNoBars
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, b := range bars {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low, nil
}

// Midpoint returns the price halfway between low and high.
func Midpoint(high, low float64) float64 {
	return low + (high-low)/2
}

// HighestHigh returns the maximum high across bars.
func HighestHigh(bars []model.Bar) (float64, error) {
	if len(bars) == 0 {
		return 0, ErrNoBars
	}
	high := math.Inf(-1)
	for _, b := range bars {
		if b.High > high {
			high = b.High
		}
	}
	return high, nil
}

// LowestLow returns the minimum low across bars.
func LowestLow(bars []model.Bar) (float64, error) {
	if len(bars) == 0 {
		return 0, ErrNoBars
	}
	low := math.Inf(1)
	for _, b := range bars {
		if b.Low < low {
			low = b.Low
		}
	}
	return low, nil
}

// PercentOfRange expresses pts as a percentage of rng, or 0 for an empty range.
func PercentOfRange(pts, rng float64) float64 {
	if rng == 0 {
		return 0
	}
	return pts / rng * 100
}
