package calendar

import (
	"fmt"
	"time"

	_ "time/tzdata"

	"IBSentinel/internal/model"
)

// DefaultZone is the exchange time zone used when none is configured.
const DefaultZone = "America/New_York"

// LoadZone loads a time zone by IANA name. An empty name loads DefaultZone.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	return loc, nil
}

// MustZone is LoadZone for zone names known at compile time.
func MustZone(name string) *time.Location {
	loc, err := LoadZone(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// LocalToUTC converts the wall-clock time c on date d in loc to UTC.
//
// A wall-clock time that occurs twice (the repeated hour when DST ends)
// resolves to the standard-time occurrence. A wall-clock time that does not
// exist (the skipped hour when DST starts) is read with the standard-time
// offset.
func LocalToUTC(d model.Date, c model.Clock, loc *time.Location) time.Time {
	naive := time.Date(d.Year, d.Month, d.Day, c.Hour, c.Minute, c.Second, 0, time.UTC)

	var (
		valid   []time.Time
		std     time.Time
		haveStd bool
	)
	// Offsets in effect half a day either side cover any single transition.
	for _, probe := range []time.Time{naive.Add(-12 * time.Hour), naive.Add(12 * time.Hour)} {
		at := probe.In(loc)
		_, offset := at.Zone()
		cand := naive.Add(-time.Duration(offset) * time.Second)
		if !at.IsDST() && !haveStd {
			std, haveStd = cand, true
		}
		if sameWallClock(cand.In(loc), naive) && !containsInstant(valid, cand) {
			valid = append(valid, cand)
		}
	}

	switch len(valid) {
	case 1:
		return valid[0]
	case 2:
		for _, v := range valid {
			if !v.In(loc).IsDST() {
				return v
			}
		}
		return valid[0]
	}
	if haveStd {
		return std
	}
	return time.Date(d.Year, d.Month, d.Day, c.Hour, c.Minute, c.Second, 0, loc).UTC()
}

// SessionDate assigns the trading session a local timestamp belongs to.
// With overnight sessions the evening part of a day, from the IB start
// onward, belongs to the next calendar date.
func SessionDate(local time.Time, ibStart model.Clock, overnight bool) model.Date {
	d := model.DateOf(local)
	if overnight && !model.ClockOf(local).Before(ibStart) {
		return d.AddDays(1)
	}
	return d
}

func sameWallClock(t, naive time.Time) bool {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := naive.Date()
	h1, mi1, s1 := t.Clock()
	h2, mi2, s2 := naive.Clock()
	return y1 == y2 && m1 == m2 && d1 == d2 && h1 == h2 && mi1 == mi2 && s1 == s2
}

func containsInstant(ts []time.Time, t time.Time) bool {
	for _, v := range ts {
		if v.Equal(t) {
			return true
		}
	}
	return false
}
