package analysis

import (
	"errors"
	"fmt"
	"time"

	"IBSentinel/internal/calendar"
	"IBSentinel/internal/model"
	"IBSentinel/internal/session"
)

// ErrInvalidParams wraps every parameter validation failure.
var ErrInvalidParams = errors.New("invalid analysis params")

// Params controls one analysis run.
type Params struct {
	IBStart   model.Clock
	IBEnd     model.Clock
	Deadline  model.Clock
	Direction model.Direction
	Mode      model.BreakoutMode
	Overnight bool
	Start     model.Date
	End       model.Date
	MinBars   int
	Location  *time.Location
	Workers   int
}

// DefaultParams returns a 01:00-02:00 New York IB with a 17:00 deadline,
// both directions and wick breakouts.
func DefaultParams() Params {
	return Params{
		IBStart:   model.Clock{Hour: 1},
		IBEnd:     model.Clock{Hour: 2},
		Deadline:  model.Clock{Hour: 17},
		Direction: model.DirectionBoth,
		Mode:      model.ModeWick,
		MinBars:   session.DefaultMinBars,
		Location:  calendar.MustZone(calendar.DefaultZone),
		Workers:   1,
	}
}

// Validate checks enum fields and the date range.
func (p Params) Validate() error {
	switch p.Direction {
	case model.DirectionUp, model.DirectionDown, model.DirectionBoth:
	default:
		return fmt.Errorf("%w: direction %q", ErrInvalidParams, p.Direction)
	}
	switch p.Mode {
	case model.ModeWick, model.ModeClose:
	default:
		return fmt.Errorf("%w: breakout mode %q", ErrInvalidParams, p.Mode)
	}
	if !p.Start.IsZero() && !p.End.IsZero() && p.Start.After(p.End) {
		return fmt.Errorf("%w: start date %s after end date %s", ErrInvalidParams, p.Start, p.End)
	}
	return nil
}

func (p Params) withDefaults() Params {
	if p.Location == nil {
		p.Location = calendar.MustZone(calendar.DefaultZone)
	}
	if p.MinBars < 1 {
		p.MinBars = session.DefaultMinBars
	}
	if p.Workers < 1 {
		p.Workers = 1
	}
	return p
}
