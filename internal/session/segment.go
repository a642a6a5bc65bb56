package session

import "IBSentinel/internal/model"

// DefaultMinBars is the smallest number of bars a session needs to be analyzed.
const DefaultMinBars = 10

// Group is the ordered bars of one session date.
type Group struct {
	Date model.Date
	Bars []model.Bar
}

// Options filter the produced groups. Zero Start or End leaves that side open.
type Options struct {
	MinBars int
	Start   model.Date
	End     model.Date
}

// Segment partitions bars into session groups in order of first appearance,
// keeping the input order inside each group. Groups without a date, with
// fewer than MinBars bars or outside [Start, End] are dropped.
func Segment(bars []model.Bar, opts Options) []Group {
	minBars := opts.MinBars
	if minBars < 1 {
		minBars = DefaultMinBars
	}

	index := make(map[model.Date]int)
	var groups []Group
	for _, b := range bars {
		i, ok := index[b.Session]
		if !ok {
			i = len(groups)
			index[b.Session] = i
			groups = append(groups, Group{Date: b.Session})
		}
		groups[i].Bars = append(groups[i].Bars, b)
	}

	out := groups[:0]
	for _, g := range groups {
		if g.Date.IsZero() || len(g.Bars) < minBars {
			continue
		}
		if !opts.Start.IsZero() && g.Date.Before(opts.Start) {
			continue
		}
		if !opts.End.IsZero() && g.Date.After(opts.End) {
			continue
		}
		out = append(out, g)
	}
	return out
}
