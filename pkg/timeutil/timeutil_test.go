package timeutil_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planhr/backend/domain"
	"github.com/planhr/backend/pkg/timeutil"
)

func TestAddCalendarDelta_Units(t *testing.T) {
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		n    int
		unit domain.RepeatUnit
		want time.Time
	}{
		{"one day", 1, domain.UnitDay, time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC)},
		{"two weeks", 2, domain.UnitWeek, time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)},
		{"one month", 1, domain.UnitMonth, time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)},
		{"one year", 1, domain.UnitYear, time.Date(2027, 6, 1, 9, 0, 0, 0, time.UTC)},
		{"backwards", -1, domain.UnitMonth, time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, timeutil.AddCalendarDelta(base, tt.n, tt.unit, time.UTC))
		})
	}
}

func TestAddCalendarDelta_WeekAcrossSpringForward(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 09:00 local on the Monday before US DST starts (2026-03-08).
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, loc).UTC()
	require.Equal(t, 14, start.Hour())

	next := timeutil.AddCalendarDelta(start, 1, domain.UnitWeek, loc)

	local := next.In(loc)
	assert.Equal(t, 9, local.Hour(), "local time of day must survive the DST change")
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC).YearDay(), local.YearDay())
	// UTC offset changed from -5 to -4, so the UTC instant moves an hour.
	assert.Equal(t, 13, next.Hour())
}

func TestClipHours(t *testing.T) {
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	intervals := []timeutil.Interval{
		{Start: day.Add(9 * time.Hour), End: day.Add(12 * time.Hour)},
		{Start: day.Add(13 * time.Hour), End: day.Add(17 * time.Hour)},
	}

	assert.Equal(t, 7.0, timeutil.ClipHours(intervals, day, day.Add(24*time.Hour)))
	assert.Equal(t, 4.0, timeutil.ClipHours(intervals, day.Add(10*time.Hour), day.Add(15*time.Hour)))
	assert.Equal(t, 0.0, timeutil.ClipHours(intervals, day.Add(18*time.Hour), day.Add(20*time.Hour)))
}

func TestIntervalHours(t *testing.T) {
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	iv := timeutil.Interval{Start: start, End: start.Add(90 * time.Minute)}
	assert.Equal(t, 1.5, iv.Hours())

	inverted := timeutil.Interval{Start: start, End: start.Add(-time.Hour)}
	assert.Equal(t, 0.0, inverted.Hours())
}

func TestDaysSpanned(t *testing.T) {
	start := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, timeutil.DaysSpanned(start, start))
	assert.Equal(t, 1, timeutil.DaysSpanned(start, start.Add(9*time.Hour)))
	assert.Equal(t, 1, timeutil.DaysSpanned(start, start.Add(24*time.Hour)))
	assert.Equal(t, 2, timeutil.DaysSpanned(start, start.Add(25*time.Hour)))
	assert.Equal(t, 0, timeutil.DaysSpanned(start, start.Add(-time.Hour)))
}

func TestDatesBetween(t *testing.T) {
	from := time.Date(2026, 6, 5, 22, 0, 0, 0, time.UTC)
	to := time.Date(2026, 6, 7, 2, 0, 0, 0, time.UTC)

	dates := timeutil.DatesBetween(from, to, time.UTC)
	require.Len(t, dates, 3)
	assert.Equal(t, time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC), dates[0])
	assert.Equal(t, time.Date(2026, 6, 7, 0, 0, 0, 0, time.UTC), dates[2])
}

func TestLoadLocation_FallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, timeutil.LoadLocation(""))
	assert.Equal(t, time.UTC, timeutil.LoadLocation("Not/AZone"))

	loc := timeutil.LoadLocation("Europe/Brussels")
	assert.Equal(t, "Europe/Brussels", loc.String())
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 7.33, timeutil.Round2(7.3333))
	assert.Equal(t, 7.34, timeutil.Round2(7.336))
	assert.Equal(t, 0.0, timeutil.Round2(0))
}
