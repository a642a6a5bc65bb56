package simulator

import (
	"github.com/shopspring/decimal"

	"IBSentinel/internal/calculator"
	"IBSentinel/internal/fund"
	"IBSentinel/internal/model"
)

// Summary aggregates a simulation run.
type Summary struct {
	Trades         int
	Realized       int
	Counts         map[model.Outcome]int
	Wins           int
	Losses         int
	WinRate        float64
	TotalR         float64
	AvgR           float64
	TotalPnL       decimal.Decimal
	MaxWinStreak   int
	MaxLossStreak  int
	Final          decimal.Decimal
	MaxDrawdown    decimal.Decimal
	MaxDrawdownPct float64
}

// Summarize counts outcomes and measures the realized trades. Win rate and
// streaks treat any realized trade with positive PnL as a win.
func Summarize(trades []model.Trade, curve model.EquityCurve) Summary {
	sum := Summary{
		Trades:         len(trades),
		Counts:         make(map[model.Outcome]int),
		TotalPnL:       decimal.Zero,
		Final:          curve.Final,
		MaxDrawdown:    curve.MaxDrawdown,
		MaxDrawdownPct: curve.MaxDrawdownPct,
	}
	for _, tr := range trades {
		sum.Counts[tr.Outcome]++
	}

	realized := fund.Realized(trades)
	sum.Realized = len(realized)
	flags := make([]bool, 0, len(realized))
	for _, tr := range realized {
		won := tr.PnL.IsPositive()
		flags = append(flags, won)
		if won {
			sum.Wins++
		} else {
			sum.Losses++
		}
		sum.TotalR += tr.R
		sum.TotalPnL = sum.TotalPnL.Add(tr.PnL)
	}
	if sum.Realized > 0 {
		sum.AvgR = sum.TotalR / float64(sum.Realized)
	}
	sum.WinRate = calculator.Rate(sum.Wins, sum.Realized)
	sum.MaxWinStreak, sum.MaxLossStreak = calculator.Streaks(flags)
	return sum
}
