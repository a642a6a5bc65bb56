package fund

import (
	"sort"

	"github.com/shopspring/decimal"

	"IBSentinel/internal/model"
)

// Ledger converts R multiples into cash and books realized trades into an
// equity curve.
type Ledger struct {
	RiskModel model.RiskModel
	RiskValue decimal.Decimal
	Starting  decimal.Decimal
}

// NewLedger creates a Ledger for the given risk model.
func NewLedger(riskModel model.RiskModel, riskValue, starting decimal.Decimal) *Ledger {
	return &Ledger{RiskModel: riskModel, RiskValue: riskValue, Starting: starting}
}

// PnL returns the cash result of a trade that made r times its risk.
func (l *Ledger) PnL(r float64) decimal.Decimal {
	switch l.RiskModel {
	case model.RiskFixed:
		return decimal.NewFromFloat(r).Mul(l.RiskValue)
	}
	return decimal.Zero
}

// Curve books realized trades in session-date order on top of the starting
// balance. The first point is a synthetic anchor one day before the first
// realized trade. Drawdown at each point is balance minus running peak.
func (l *Ledger) Curve(trades []model.Trade) model.EquityCurve {
	realized := Realized(trades)
	curve := model.EquityCurve{Final: l.Starting, MaxDrawdown: decimal.Zero}
	if len(realized) == 0 {
		return curve
	}

	balance := l.Starting
	peak := l.Starting
	curve.Points = append(curve.Points, model.EquityPoint{
		Date:     realized[0].Date.AddDays(-1),
		Balance:  balance,
		Peak:     peak,
		Drawdown: decimal.Zero,
	})
	for _, tr := range realized {
		balance = balance.Add(tr.PnL)
		if balance.GreaterThan(peak) {
			peak = balance
		}
		dd := balance.Sub(peak)
		pct := 0.0
		if peak.IsPositive() {
			pct, _ = dd.Div(peak).Mul(decimal.NewFromInt(100)).Float64()
		}
		curve.Points = append(curve.Points, model.EquityPoint{
			Date:        tr.Date,
			Balance:     balance,
			Peak:        peak,
			Drawdown:    dd,
			DrawdownPct: pct,
		})
		if dd.LessThan(curve.MaxDrawdown) {
			curve.MaxDrawdown = dd
			curve.MaxDrawdownPct = pct
		}
	}
	curve.Final = balance
	return curve
}

// Realized returns the entered trades sorted by session date.
func Realized(trades []model.Trade) []model.Trade {
	var out []model.Trade
	for _, tr := range trades {
		if tr.Outcome.Realized() {
			out = append(out, tr)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
