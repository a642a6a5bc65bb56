package normalize

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"IBSentinel/internal/calendar"
	"IBSentinel/internal/model"
)

// Config controls timestamp interpretation and session assignment.
type Config struct {
	Location  *time.Location
	IBStart   model.Clock
	Overnight bool
}

// Stats counts what happened to the input rows.
type Stats struct {
	Rows         int
	Kept         int
	Malformed    int
	BadTimestamp int
	BadPrice     int
}

// Dropped returns the number of rows excluded from the output.
func (s Stats) Dropped() int { return s.Rows - s.Kept }

var timestampLayouts = []string{
	"20060102 150405",
	"20060102150405",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	time.RFC3339Nano,
}

// Normalize converts raw rows into bars with UTC and local timestamps and a
// session date, sorted ascending by UTC. Timestamps without a zone are UTC.
// Rows whose timestamp or prices cannot be parsed are dropped.
func Normalize(rows []model.RawRow, cfg Config) ([]model.Bar, Stats) {
	loc := cfg.Location
	if loc == nil {
		loc = calendar.MustZone(calendar.DefaultZone)
	}

	stats := Stats{Rows: len(rows)}
	bars := make([]model.Bar, 0, len(rows))
	for _, row := range rows {
		ts, prices, ok := split(row)
		if !ok {
			stats.Malformed++
			continue
		}
		at, ok := ParseTimestamp(ts)
		if !ok {
			stats.BadTimestamp++
			continue
		}
		var p [4]float64
		valid := true
		for i, v := range prices {
			if p[i], ok = ParsePrice(v); !ok {
				valid = false
				break
			}
		}
		if !valid {
			stats.BadPrice++
			continue
		}

		local := at.In(loc)
		bars = append(bars, model.Bar{
			UTC:     at,
			Local:   local,
			Session: calendar.SessionDate(local, cfg.IBStart, cfg.Overnight),
			Open:    p[0],
			High:    p[1],
			Low:     p[2],
			Close:   p[3],
		})
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].UTC.Before(bars[j].UTC) })
	stats.Kept = len(bars)
	return bars, stats
}

func split(row model.RawRow) (any, [4]any, bool) {
	if row.Line == "" {
		return row.Timestamp, [4]any{row.Open, row.High, row.Low, row.Close}, true
	}
	parts := strings.Split(row.Line, ";")
	if len(parts) < 5 {
		return nil, [4]any{}, false
	}
	return parts[0], [4]any{parts[1], parts[2], parts[3], parts[4]}, true
}

// ParseTimestamp interprets v as a UTC instant. It accepts time.Time,
// compact "YYYYMMDD HHMMSS" strings, ISO-style strings and integers or
// integral floats of the form YYYYMMDDHHMMSS.
func ParseTimestamp(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return time.Time{}, false
		}
		return x.UTC(), true
	case string:
		return parseTimestampString(x)
	case []byte:
		return parseTimestampString(string(x))
	case int64:
		return compactNumeric(x)
	case int:
		return compactNumeric(int64(x))
	case uint64:
		if x > math.MaxInt64 {
			return time.Time{}, false
		}
		return compactNumeric(int64(x))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
			return time.Time{}, false
		}
		return compactNumeric(int64(x))
	}
	return time.Time{}, false
}

func parseTimestampString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func compactNumeric(n int64) (time.Time, bool) {
	if n < 10000101000000 || n > 99991231235959 {
		return time.Time{}, false
	}
	sec := int(n % 100)
	n /= 100
	minute := int(n % 100)
	n /= 100
	hour := int(n % 100)
	n /= 100
	day := int(n % 100)
	n /= 100
	month := time.Month(n % 100)
	year := int(n / 100)

	t := time.Date(year, month, day, hour, minute, sec, 0, time.UTC)
	if t.Month() != month || t.Day() != day || t.Hour() != hour || t.Minute() != minute || t.Second() != sec {
		return time.Time{}, false
	}
	return t, true
}

// ParsePrice interprets v as a finite price.
func ParsePrice(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case int:
		f = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case []byte:
		return ParsePrice(string(x))
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
