// Package timeutil holds the date arithmetic the planner needs on top of
// the calendar service: clipping working intervals to a task window and
// stepping timestamps by calendar units without drifting across DST
// boundaries.
package timeutil

import (
	"math"
	"time"

	"github.com/planhr/backend/domain"
)

// Interval is a half-open [Start, End) span of working time, as returned by
// the calendar service. Both bounds are UTC.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Hours returns the interval length in hours.
func (iv Interval) Hours() float64 {
	if iv.End.Before(iv.Start) {
		return 0
	}
	return iv.End.Sub(iv.Start).Hours()
}

// ClipHours sums the portions of ordered intervals that fall inside
// [from, to].
func ClipHours(intervals []Interval, from, to time.Time) float64 {
	var total float64
	for _, iv := range intervals {
		start := maxTime(iv.Start, from)
		end := minTime(iv.End, to)
		if end.After(start) {
			total += end.Sub(start).Hours()
		}
	}
	return total
}

// AddCalendarDelta adds n units to t using local wall-clock arithmetic in
// loc, then converts back to UTC. Stepping "+1 week" across a DST change
// keeps the local time of day instead of shifting by an hour.
func AddCalendarDelta(t time.Time, n int, unit domain.RepeatUnit, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	switch unit {
	case domain.UnitDay:
		local = local.AddDate(0, 0, n)
	case domain.UnitWeek:
		local = local.AddDate(0, 0, 7*n)
	case domain.UnitMonth:
		local = local.AddDate(0, n, 0)
	case domain.UnitYear:
		local = local.AddDate(n, 0, 0)
	}
	return local.UTC()
}

// LoadLocation parses an IANA timezone name, falling back to UTC for empty
// or unknown names.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DaysSpanned counts the calendar days a window touches, with any partial
// trailing day counted as a full one.
func DaysSpanned(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	d := to.Sub(from)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// DatesBetween lists the calendar dates (midnight-truncated, in loc) from
// the date of from through the date of to inclusive.
func DatesBetween(from, to time.Time, loc *time.Location) []time.Time {
	if loc == nil {
		loc = time.UTC
	}
	start := truncateToDate(from.In(loc))
	end := truncateToDate(to.In(loc))
	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// Round2 rounds to two decimals for display-facing hour values.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
