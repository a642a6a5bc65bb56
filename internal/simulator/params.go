package simulator

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"IBSentinel/internal/calendar"
	"IBSentinel/internal/model"
)

// ErrInvalidParams wraps every parameter validation failure.
var ErrInvalidParams = errors.New("invalid simulation params")

// Params describes the trade template applied to every breakout.
// Percentages are of the IB range and measured from the broken boundary
// in the breakout direction; negative values point back into the IB.
// FADE trades therefore take profit at a negative TakeProfitPct.
type Params struct {
	TriggerPct    float64
	EntryPct      float64
	TakeProfitPct float64
	StopPct       float64
	Strategy      model.Strategy
	// Deadline closes the trade window. The zero Clock reuses the
	// analysis deadline of each session.
	Deadline        model.Clock
	RiskModel       model.RiskModel
	RiskValue       decimal.Decimal
	StartingCapital decimal.Decimal
	Location        *time.Location
}

// DefaultParams returns a trend template risking 100 per trade on 10000.
func DefaultParams() Params {
	return Params{
		TriggerPct:      10,
		EntryPct:        0,
		TakeProfitPct:   100,
		StopPct:         50,
		Strategy:        model.StrategyTrend,
		RiskModel:       model.RiskFixed,
		RiskValue:       decimal.NewFromInt(100),
		StartingCapital: decimal.NewFromInt(10000),
		Location:        calendar.MustZone(calendar.DefaultZone),
	}
}

// Validate checks the enum fields and the money amounts.
func (p Params) Validate() error {
	switch p.Strategy {
	case model.StrategyTrend, model.StrategyFade:
	default:
		return fmt.Errorf("%w: strategy %q", ErrInvalidParams, p.Strategy)
	}
	if p.RiskModel != model.RiskFixed {
		return fmt.Errorf("%w: risk model %q", ErrInvalidParams, p.RiskModel)
	}
	if p.RiskValue.IsNegative() {
		return fmt.Errorf("%w: risk value must not be negative", ErrInvalidParams)
	}
	if p.StartingCapital.IsNegative() {
		return fmt.Errorf("%w: starting capital must not be negative", ErrInvalidParams)
	}
	return nil
}

// Levels derives the trade side and absolute price levels for a breakout
// in dir off an IB spanning [ibLow, ibHigh].
func Levels(dir model.Direction, ibHigh, ibLow float64, p Params) (model.Side, model.TradeLevels) {
	rng := ibHigh - ibLow
	sign, base, invalidation := 1.0, ibHigh, ibLow
	if dir == model.DirectionDown {
		sign, base, invalidation = -1.0, ibLow, ibHigh
	}
	offset := func(pct float64) float64 { return sign * rng * pct / 100 }

	lv := model.TradeLevels{
		Base:         base,
		Trigger:      base + offset(p.TriggerPct),
		Entry:        base + offset(p.EntryPct),
		TakeProfit:   base + offset(p.TakeProfitPct),
		Invalidation: invalidation,
	}

	side := model.SideLong
	if dir == model.DirectionDown {
		side = model.SideShort
	}
	if p.Strategy == model.StrategyFade {
		side = opposite(side)
		lv.Stop = lv.Entry + offset(p.StopPct)
	} else {
		lv.Stop = lv.Entry - offset(p.StopPct)
	}
	return side, lv
}

func opposite(s model.Side) model.Side {
	if s == model.SideLong {
		return model.SideShort
	}
	return model.SideLong
}
