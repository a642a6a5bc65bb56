package loader

import (
	"context"
	"math"
	"math/rand"
	"time"

	"IBSentinel/internal/calendar"
	"IBSentinel/internal/model"
)

// MockSource returns fixed or generated data for development and testing.
type MockSource struct {
	// Rows, when set, is returned as is.
	Rows []model.RawRow
	// Version is reported as the fingerprint.
	Version string

	// Generator settings used when Rows is nil.
	Start    model.Date
	Days     int
	Price    float64
	Interval time.Duration
	Location *time.Location
	Seed     int64
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) Fingerprint(_ context.Context) (string, error) {
	return m.Version, nil
}

func (m *MockSource) Load(ctx context.Context) ([]model.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Rows != nil {
		return m.Rows, nil
	}
	return m.generate(), nil
}

// generate produces a random walk over weekdays from midnight to 17:00
// local time, so every day forms one regular session.
func (m *MockSource) generate() []model.RawRow {
	loc := m.Location
	if loc == nil {
		loc = calendar.MustZone(calendar.DefaultZone)
	}
	start := m.Start
	if start.IsZero() {
		start = model.Date{Year: 2024, Month: time.January, Day: 2}
	}
	days := m.Days
	if days <= 0 {
		days = 20
	}
	price := m.Price
	if price <= 0 {
		price = 100
	}
	step := m.Interval
	if step <= 0 {
		step = 5 * time.Minute
	}
	rng := rand.New(rand.NewSource(m.Seed))

	var rows []model.RawRow
	for i := 0; i < days; i++ {
		d := start.AddDays(i)
		if wd := d.Time().Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		open := calendar.LocalToUTC(d, model.Clock{}, loc)
		end := calendar.LocalToUTC(d, model.Clock{Hour: 17}, loc)
		for t := open; !t.After(end); t = t.Add(step) {
			o := price
			c := o * (1 + rng.NormFloat64()*0.001)
			h := math.Max(o, c) * (1 + rng.Float64()*0.0005)
			l := math.Min(o, c) * (1 - rng.Float64()*0.0005)
			rows = append(rows, model.RawRow{Timestamp: t, Open: o, High: h, Low: l, Close: c})
			price = c
		}
	}
	return rows
}
