package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IBSentinel/internal/model"
)

func utc(y int, m time.Month, d, h, mi int) time.Time {
	return time.Date(y, m, d, h, mi, 0, 0, time.UTC)
}

func TestLocalToUTC(t *testing.T) {
	ny := MustZone(DefaultZone)

	tests := []struct {
		name  string
		date  model.Date
		clock model.Clock
		want  time.Time
	}{
		{"winter", model.Date{Year: 2024, Month: time.January, Day: 15}, model.Clock{Hour: 9, Minute: 30}, utc(2024, time.January, 15, 14, 30)},
		{"summer", model.Date{Year: 2024, Month: time.July, Day: 1}, model.Clock{Hour: 9, Minute: 30}, utc(2024, time.July, 1, 13, 30)},
		{"spring forward day after gap", model.Date{Year: 2024, Month: time.March, Day: 10}, model.Clock{Hour: 9, Minute: 30}, utc(2024, time.March, 10, 13, 30)},
		{"spring forward day before gap", model.Date{Year: 2024, Month: time.March, Day: 10}, model.Clock{Hour: 1, Minute: 0}, utc(2024, time.March, 10, 6, 0)},
		{"nonexistent time uses standard offset", model.Date{Year: 2024, Month: time.March, Day: 10}, model.Clock{Hour: 2, Minute: 30}, utc(2024, time.March, 10, 7, 30)},
		{"ambiguous time resolves to standard", model.Date{Year: 2024, Month: time.November, Day: 3}, model.Clock{Hour: 1, Minute: 30}, utc(2024, time.November, 3, 6, 30)},
		{"ambiguous time 2023", model.Date{Year: 2023, Month: time.November, Day: 5}, model.Clock{Hour: 1, Minute: 0}, utc(2023, time.November, 5, 6, 0)},
		{"fall back day after repeat", model.Date{Year: 2024, Month: time.November, Day: 3}, model.Clock{Hour: 17, Minute: 0}, utc(2024, time.November, 3, 22, 0)},
		{"fall back day before repeat", model.Date{Year: 2024, Month: time.November, Day: 3}, model.Clock{Hour: 0, Minute: 30}, utc(2024, time.November, 3, 4, 30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LocalToUTC(tt.date, tt.clock, ny)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got.UTC())
		})
	}
}

func TestLocalToUTC_UTCZone(t *testing.T) {
	got := LocalToUTC(model.Date{Year: 2024, Month: time.March, Day: 10}, model.Clock{Hour: 2, Minute: 30}, time.UTC)
	assert.True(t, utc(2024, time.March, 10, 2, 30).Equal(got))
}

func TestSessionDate(t *testing.T) {
	ny := MustZone(DefaultZone)
	ibStart := model.Clock{Hour: 18}

	evening := time.Date(2024, time.January, 15, 18, 0, 0, 0, ny)
	morning := time.Date(2024, time.January, 15, 9, 30, 0, 0, ny)

	assert.Equal(t, model.Date{Year: 2024, Month: time.January, Day: 16}, SessionDate(evening, ibStart, true))
	assert.Equal(t, model.Date{Year: 2024, Month: time.January, Day: 15}, SessionDate(morning, ibStart, true))
	assert.Equal(t, model.Date{Year: 2024, Month: time.January, Day: 15}, SessionDate(evening, ibStart, false))

	endOfMonth := time.Date(2024, time.January, 31, 20, 0, 0, 0, ny)
	assert.Equal(t, model.Date{Year: 2024, Month: time.February, Day: 1}, SessionDate(endOfMonth, ibStart, true))
}

func TestLoadZone(t *testing.T) {
	loc, err := LoadZone("")
	require.NoError(t, err)
	assert.Equal(t, DefaultZone, loc.String())

	_, err = LoadZone("Mars/Olympus_Mons")
	assert.Error(t, err)
}
