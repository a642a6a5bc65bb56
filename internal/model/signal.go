package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Strategy decides whether a trade follows or fades the breakout.
type Strategy string

const (
	StrategyTrend Strategy = "TREND"
	StrategyFade  Strategy = "FADE"
)

// ParseStrategy accepts TREND or FADE in any case.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToUpper(strings.TrimSpace(s))); st {
	case StrategyTrend, StrategyFade:
		return st, nil
	}
	return "", fmt.Errorf("unknown strategy %q", s)
}

// Side is the trade direction.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// RiskModel controls how R multiples map to cash.
type RiskModel string

// RiskFixed risks a constant cash amount per trade.
const RiskFixed RiskModel = "FIXED"

// ParseRiskModel accepts FIXED in any case.
func ParseRiskModel(s string) (RiskModel, error) {
	if m := RiskModel(strings.ToUpper(strings.TrimSpace(s))); m == RiskFixed {
		return m, nil
	}
	return "", fmt.Errorf("unknown risk model %q", s)
}

// Outcome is the final classification of a simulated trade.
type Outcome string

const (
	OutcomeWin       Outcome = "WIN"
	OutcomeLoss      Outcome = "LOSS"
	OutcomeClose     Outcome = "CLOSE"
	OutcomeMissed    Outcome = "MISSED"
	OutcomeNoTime    Outcome = "NO TIME"
	OutcomeNoTrigger Outcome = "NO TRIGGER"
	OutcomeInvalid   Outcome = "INVALID (Double Break)"
)

// AllOutcomes lists every outcome in report order.
var AllOutcomes = []Outcome{
	OutcomeWin, OutcomeLoss, OutcomeClose,
	OutcomeMissed, OutcomeNoTime, OutcomeNoTrigger, OutcomeInvalid,
}

// Realized reports whether the trade was actually entered.
func (o Outcome) Realized() bool {
	return o == OutcomeWin || o == OutcomeLoss || o == OutcomeClose
}

// TradeLevels holds the absolute prices derived from the IB for one trade.
type TradeLevels struct {
	Base         float64
	Trigger      float64
	Entry        float64
	TakeProfit   float64
	Stop         float64
	Invalidation float64
}

// Trade is the result of simulating one breakout session.
// Time fields are zero when the corresponding phase was never reached.
type Trade struct {
	Date        Date
	Direction   Direction
	Side        Side
	Levels      TradeLevels
	Outcome     Outcome
	TriggerTime time.Time
	EntryTime   time.Time
	ExitTime    time.Time
	ExitPrice   float64
	R           float64
	PnL         decimal.Decimal
}
