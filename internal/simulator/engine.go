package simulator

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"IBSentinel/internal/calendar"
	"IBSentinel/internal/fund"
	"IBSentinel/internal/model"
)

// Simulator replays one templated trade per breakout session bar by bar.
type Simulator struct {
	params Params
	ledger *fund.Ledger
	logger *zap.Logger
}

// New creates a Simulator. A nil logger disables logging.
func New(p Params, logger *zap.Logger) (*Simulator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Location == nil {
		p.Location = calendar.MustZone(calendar.DefaultZone)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		params: p,
		ledger: fund.NewLedger(p.RiskModel, p.RiskValue, p.StartingCapital),
		logger: logger,
	}, nil
}

// Ledger returns the ledger used to price trades.
func (s *Simulator) Ledger() *fund.Ledger { return s.ledger }

// Run simulates every session in date order. bars must be the normalized
// series sorted by UTC.
func (s *Simulator) Run(bars []model.Bar, sessions []model.SessionResult) []model.Trade {
	ordered := make([]model.SessionResult, len(sessions))
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	trades := make([]model.Trade, 0, len(ordered))
	for _, res := range ordered {
		tr := s.Simulate(res, s.window(bars, res))
		s.logger.Debug("trade simulated",
			zap.Stringer("date", tr.Date),
			zap.String("side", string(tr.Side)),
			zap.String("outcome", string(tr.Outcome)),
			zap.Float64("r", tr.R))
		trades = append(trades, tr)
	}
	return trades
}

// window returns the bars from IB close through the trade deadline.
func (s *Simulator) window(bars []model.Bar, res model.SessionResult) []model.Bar {
	deadline := s.Deadline(res)
	lo := sort.Search(len(bars), func(i int) bool { return !bars[i].UTC.Before(res.IBEndUTC) })
	hi := sort.Search(len(bars), func(i int) bool { return bars[i].UTC.After(deadline) })
	if hi < lo {
		return nil
	}
	return bars[lo:hi]
}

// Simulate walks window through the trigger, entry and exit phases.
func (s *Simulator) Simulate(res model.SessionResult, window []model.Bar) model.Trade {
	side, lv := Levels(res.Direction, res.IBHigh, res.IBLow, s.params)
	tr := model.Trade{Date: res.Date, Direction: res.Direction, Side: side, Levels: lv}
	up := res.Direction == model.DirectionUp

	breached := func(bars []model.Bar) bool {
		for _, b := range bars {
			if (up && b.Low < lv.Invalidation) || (!up && b.High > lv.Invalidation) {
				return true
			}
		}
		return false
	}

	trigger := -1
	for i, b := range window {
		if (up && b.High >= lv.Trigger) || (!up && b.Low <= lv.Trigger) {
			trigger = i
			break
		}
	}
	if trigger < 0 {
		tr.Outcome = model.OutcomeNoTrigger
		if breached(window) {
			tr.Outcome = model.OutcomeInvalid
		}
		return tr
	}
	tr.TriggerTime = window[trigger].UTC
	if breached(window[:trigger]) {
		tr.Outcome = model.OutcomeInvalid
		return tr
	}

	afterTrigger := window[trigger+1:]
	if len(afterTrigger) == 0 {
		tr.Outcome = model.OutcomeNoTime
		return tr
	}
	entry := -1
	for i, b := range afterTrigger {
		if entryTouched(b, lv, up) {
			entry = i
			break
		}
	}
	if entry < 0 {
		tr.Outcome = model.OutcomeMissed
		return tr
	}
	entryBar := afterTrigger[entry]
	tr.EntryTime = entryBar.UTC

	s.exit(&tr, entryBar, afterTrigger[entry+1:])
	tr.R = RMultiple(side, lv.Entry, tr.ExitPrice, lv.Stop)
	tr.PnL = s.ledger.PnL(tr.R)
	return tr
}

func (s *Simulator) exit(tr *model.Trade, entryBar model.Bar, rest []model.Bar) {
	lv := tr.Levels
	if len(rest) == 0 {
		tr.Outcome, tr.ExitPrice, tr.ExitTime = model.OutcomeClose, entryBar.Close, entryBar.UTC
		return
	}
	for _, b := range rest {
		var stopHit, tpHit bool
		if tr.Side == model.SideLong {
			stopHit, tpHit = b.Low <= lv.Stop, b.High >= lv.TakeProfit
		} else {
			stopHit, tpHit = b.High >= lv.Stop, b.Low <= lv.TakeProfit
		}
		// A bar touching both levels is booked as a loss.
		switch {
		case stopHit:
			tr.Outcome, tr.ExitPrice, tr.ExitTime = model.OutcomeLoss, lv.Stop, b.UTC
			return
		case tpHit:
			tr.Outcome, tr.ExitPrice, tr.ExitTime = model.OutcomeWin, lv.TakeProfit, b.UTC
			return
		}
	}
	last := rest[len(rest)-1]
	tr.Outcome, tr.ExitPrice, tr.ExitTime = model.OutcomeClose, last.Close, last.UTC
}

// entryTouched reports whether b reaches the entry level. An entry between
// the boundary and the trigger needs a pullback; one beyond the trigger
// needs a further extension.
func entryTouched(b model.Bar, lv model.TradeLevels, up bool) bool {
	if up {
		if lv.Entry <= lv.Trigger {
			return b.Low <= lv.Entry
		}
		return b.High >= lv.Entry
	}
	if lv.Entry >= lv.Trigger {
		return b.High >= lv.Entry
	}
	return b.Low <= lv.Entry
}

// RMultiple returns the signed result in units of the entry-to-stop
// distance. A zero distance counts as one price unit.
func RMultiple(side model.Side, entry, exit, stop float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		risk = 1.0
	}
	move := exit - entry
	if side == model.SideShort {
		move = -move
	}
	return move / risk
}

// Deadline returns the UTC trade deadline for res.
func (s *Simulator) Deadline(res model.SessionResult) time.Time {
	if s.params.Deadline == (model.Clock{}) {
		return res.DeadlineUTC
	}
	return calendar.LocalToUTC(res.Date, s.params.Deadline, s.params.Location)
}
