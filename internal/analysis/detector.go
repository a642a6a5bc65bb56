package analysis

import (
	"IBSentinel/internal/calculator"
	"IBSentinel/internal/calendar"
	"IBSentinel/internal/model"
)

// Reasons a session produces no result.
const (
	ReasonEmptyIB    = "empty_ib"
	ReasonEmptyEval  = "empty_eval"
	ReasonNoBreakout = "no_breakout"
	ReasonWrongSide  = "direction_filtered"
	reasonAccepted   = ""
)

// BuildSession anchors the IB window and the evaluation window for one
// session date and computes the IB levels. The IB window is
// [IBStart, IBEnd) and the evaluation window is [IBEnd, Deadline].
// It returns a non-empty reason when either window has no bars.
func BuildSession(date model.Date, bars []model.Bar, p Params) (model.Session, string) {
	p = p.withDefaults()
	ibDate := date
	if p.Overnight {
		ibDate = date.AddDays(-1)
	}
	s := model.Session{
		Date:        date,
		Bars:        bars,
		IBStartUTC:  calendar.LocalToUTC(ibDate, p.IBStart, p.Location),
		IBEndUTC:    calendar.LocalToUTC(date, p.IBEnd, p.Location),
		DeadlineUTC: calendar.LocalToUTC(date, p.Deadline, p.Location),
	}

	for _, b := range bars {
		if !b.UTC.Before(s.IBStartUTC) && b.UTC.Before(s.IBEndUTC) {
			s.IB = append(s.IB, b)
		}
		if !b.UTC.Before(s.IBEndUTC) && !b.UTC.After(s.DeadlineUTC) {
			s.Eval = append(s.Eval, b)
		}
	}

	high, low, err := calculator.InitialBalance(s.IB)
	if err != nil {
		return s, ReasonEmptyIB
	}
	s.IBHigh, s.IBLow = high, low
	s.IBRange = high - low
	s.IBMid = calculator.Midpoint(high, low)

	if len(s.Eval) == 0 {
		return s, ReasonEmptyEval
	}
	return s, reasonAccepted
}

// DetectBreakout returns the first evaluation bar that breaches the IB.
// A bar breaching both sides counts as UP.
func DetectBreakout(s model.Session, mode model.BreakoutMode) (model.BreakoutEvent, bool) {
	for _, b := range s.Eval {
		up, down := b.High > s.IBHigh, b.Low < s.IBLow
		if mode == model.ModeClose {
			up, down = b.Close > s.IBHigh, b.Close < s.IBLow
		}
		switch {
		case up:
			return model.BreakoutEvent{Direction: model.DirectionUp, Bar: b, Time: b.UTC}, true
		case down:
			return model.BreakoutEvent{Direction: model.DirectionDown, Bar: b, Time: b.UTC}, true
		}
	}
	return model.BreakoutEvent{}, false
}
