package analysis

import (
	"sort"

	"IBSentinel/internal/calculator"
	"IBSentinel/internal/model"
)

// HourBucket counts returns that happened within the given hour after IB close.
// Hour 1 covers minutes 0-59.
type HourBucket struct {
	Hour  int
	Count int
}

// TargetSummary aggregates one target kind across sessions.
type TargetSummary struct {
	Target            model.TargetKind
	Sessions          int
	Hits              int
	HitRate           float64
	MeanDistancePts   float64
	MeanDistancePct   float64
	MedianDistancePts float64
	MedianDistancePct float64
	MaxHitStreak      int
	MaxMissStreak     int
	ReturnBuckets     []HourBucket
}

// Summary aggregates a full result set.
type Summary struct {
	Sessions int
	Up       int
	Down     int
	Targets  [model.NumTargets]TargetSummary
}

// Summarize computes hit rates, distance statistics over hits, streaks of the
// returned flag in date order, and time-to-return buckets for every target.
func Summarize(results []model.SessionResult) Summary {
	sum := Summary{Sessions: len(results)}
	for _, r := range results {
		if r.Direction == model.DirectionUp {
			sum.Up++
		} else {
			sum.Down++
		}
	}

	for _, k := range model.AllTargets {
		ts := TargetSummary{Target: k, Sessions: len(results)}
		var pts, pct []float64
		flags := make([]bool, 0, len(results))
		for _, r := range results {
			ret := r.Return(k)
			flags = append(flags, ret.Returned)
			if ret.Returned {
				ts.Hits++
				pts = append(pts, ret.DistancePts)
				pct = append(pct, ret.DistancePct)
			}
		}
		ts.HitRate = calculator.Rate(ts.Hits, ts.Sessions)
		ts.MeanDistancePts = calculator.Mean(pts)
		ts.MeanDistancePct = calculator.Mean(pct)
		ts.MedianDistancePts = calculator.Median(pts)
		ts.MedianDistancePct = calculator.Median(pct)
		ts.MaxHitStreak, ts.MaxMissStreak = calculator.Streaks(flags)
		ts.ReturnBuckets = ReturnTimeBuckets(results, k)
		sum.Targets[k] = ts
	}
	return sum
}

// ReturnTimeBuckets groups returns for target k by hour after IB close,
// in ascending hour order.
func ReturnTimeBuckets(results []model.SessionResult, k model.TargetKind) []HourBucket {
	counts := make(map[int]int)
	for _, r := range results {
		ret := r.Return(k)
		if !ret.Returned || ret.MinutesToReturn == nil {
			continue
		}
		counts[*ret.MinutesToReturn/60+1]++
	}
	buckets := make([]HourBucket, 0, len(counts))
	for h, c := range counts {
		buckets = append(buckets, HourBucket{Hour: h, Count: c})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Hour < buckets[j].Hour })
	return buckets
}

// DateBounds returns the first and last session dates present in bars.
func DateBounds(bars []model.Bar) (first, last model.Date, ok bool) {
	for _, b := range bars {
		if b.Session.IsZero() {
			continue
		}
		if !ok || b.Session.Before(first) {
			first = b.Session
		}
		if !ok || b.Session.After(last) {
			last = b.Session
		}
		ok = true
	}
	return first, last, ok
}
