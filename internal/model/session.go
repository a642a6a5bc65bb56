package model

import (
	"fmt"
	"strings"
	"time"
)

// Direction is the side on which price left the Initial Balance.
// DirectionBoth is only valid as a filter.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
	DirectionBoth Direction = "BOTH"
)

// ParseDirection accepts UP, DOWN or BOTH in any case.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToUpper(strings.TrimSpace(s))); d {
	case DirectionUp, DirectionDown, DirectionBoth:
		return d, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// Allows reports whether a breakout in direction d passes filter f.
func (f Direction) Allows(d Direction) bool {
	return f == DirectionBoth || f == d
}

// BreakoutMode selects which bar prices are compared against the IB boundaries.
type BreakoutMode string

const (
	ModeWick  BreakoutMode = "wick"
	ModeClose BreakoutMode = "close"
)

// ParseBreakoutMode accepts "wick" or "close" in any case.
func ParseBreakoutMode(s string) (BreakoutMode, error) {
	switch m := BreakoutMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeWick, ModeClose:
		return m, nil
	}
	return "", fmt.Errorf("unknown breakout mode %q", s)
}

// TargetKind identifies one of the three reference levels checked for a return.
type TargetKind int

const (
	// TargetDouble is the opposite IB boundary.
	TargetDouble TargetKind = iota
	// TargetMid is the IB midpoint.
	TargetMid
	// TargetLine is the broken IB boundary.
	TargetLine
)

// NumTargets is the number of target kinds.
const NumTargets = 3

// AllTargets lists every target kind in output order.
var AllTargets = [NumTargets]TargetKind{TargetDouble, TargetMid, TargetLine}

func (k TargetKind) String() string {
	switch k {
	case TargetDouble:
		return "dbl"
	case TargetMid:
		return "mid"
	case TargetLine:
		return "line"
	}
	return fmt.Sprintf("target(%d)", int(k))
}

// Session is one trading session with its Initial Balance computed.
type Session struct {
	Date        Date
	Bars        []Bar
	IB          []Bar
	Eval        []Bar
	IBHigh      float64
	IBLow       float64
	IBRange     float64
	IBMid       float64
	IBStartUTC  time.Time
	IBEndUTC    time.Time
	DeadlineUTC time.Time
}

// BreakoutEvent is the first bar that breached the Initial Balance.
type BreakoutEvent struct {
	Direction Direction
	Bar       Bar
	Time      time.Time
}

// ReturnResult is the outcome of checking one target after a breakout.
type ReturnResult struct {
	Target          TargetKind
	Price           float64
	Returned        bool
	DistancePts     float64
	DistancePct     float64
	MinutesToReturn *int
}

// SessionResult is one output row: a session that produced a breakout.
type SessionResult struct {
	Date         Date
	Direction    Direction
	IBHigh       float64
	IBLow        float64
	IBRange      float64
	IBMid        float64
	IBStartUTC   time.Time
	IBEndUTC     time.Time
	DeadlineUTC  time.Time
	BreakoutTime time.Time
	Returns      [NumTargets]ReturnResult
}

// Return returns the result for target k.
func (r SessionResult) Return(k TargetKind) ReturnResult {
	return r.Returns[k]
}
