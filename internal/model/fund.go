package model

import "github.com/shopspring/decimal"

// EquityPoint is the account balance after one realized trade.
type EquityPoint struct {
	Date        Date
	Balance     decimal.Decimal
	Peak        decimal.Decimal
	Drawdown    decimal.Decimal // balance - peak, never positive
	DrawdownPct float64         // drawdown as a percentage of peak
}

// EquityCurve is the cumulative balance path over all realized trades.
// The first point is a synthetic anchor one day before the first trade.
type EquityCurve struct {
	Points         []EquityPoint
	Final          decimal.Decimal
	MaxDrawdown    decimal.Decimal
	MaxDrawdownPct float64
}
