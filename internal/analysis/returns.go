package analysis

import (
	"sort"
	"time"

	"IBSentinel/internal/calculator"
	"IBSentinel/internal/model"
)

// TargetPrice returns the level checked for target kind k after a breakout in dir.
func TargetPrice(s model.Session, dir model.Direction, k model.TargetKind) float64 {
	switch k {
	case model.TargetMid:
		return s.IBMid
	case model.TargetLine:
		if dir == model.DirectionUp {
			return s.IBHigh
		}
		return s.IBLow
	default:
		if dir == model.DirectionUp {
			return s.IBLow
		}
		return s.IBHigh
	}
}

// TradeWindow returns the evaluation bars strictly after the breakout.
func TradeWindow(s model.Session, ev model.BreakoutEvent) []model.Bar {
	i := sort.Search(len(s.Eval), func(i int) bool { return s.Eval[i].UTC.After(ev.Time) })
	return s.Eval[i:]
}

// EvaluateTarget checks whether price came back to target k after the
// breakout and measures the maximum adverse excursion beyond the broken
// boundary up to the return, or over the whole trade window without one.
func EvaluateTarget(s model.Session, ev model.BreakoutEvent, k model.TargetKind) model.ReturnResult {
	target := TargetPrice(s, ev.Direction, k)
	res := model.ReturnResult{Target: k, Price: target}

	window := TradeWindow(s, ev)
	if len(window) == 0 {
		return res
	}

	scope := window
	for i, b := range window {
		touched := b.Low <= target
		if ev.Direction == model.DirectionDown {
			touched = b.High >= target
		}
		if touched {
			minutes := int(b.UTC.Sub(s.IBEndUTC) / time.Minute)
			res.Returned = true
			res.MinutesToReturn = &minutes
			scope = window[:i+1]
			break
		}
	}

	var pts float64
	if ev.Direction == model.DirectionUp {
		high, _ := calculator.HighestHigh(scope)
		pts = high - s.IBHigh
	} else {
		low, _ := calculator.LowestLow(scope)
		pts = s.IBLow - low
	}
	if pts < 0 {
		pts = 0
	}
	res.DistancePts = pts
	res.DistancePct = calculator.PercentOfRange(pts, s.IBRange)
	return res
}

// BuildResult assembles the output row for a session with a breakout.
func BuildResult(s model.Session, ev model.BreakoutEvent) model.SessionResult {
	r := model.SessionResult{
		Date:         s.Date,
		Direction:    ev.Direction,
		IBHigh:       s.IBHigh,
		IBLow:        s.IBLow,
		IBRange:      s.IBRange,
		IBMid:        s.IBMid,
		IBStartUTC:   s.IBStartUTC,
		IBEndUTC:     s.IBEndUTC,
		DeadlineUTC:  s.DeadlineUTC,
		BreakoutTime: ev.Time,
	}
	for _, k := range model.AllTargets {
		r.Returns[k] = EvaluateTarget(s, ev, k)
	}
	return r
}
