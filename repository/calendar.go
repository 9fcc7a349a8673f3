package repository

import (
	"context"
	"time"

	"github.com/planhr/backend/domain"
	"github.com/planhr/backend/pkg/timeutil"
)

// WorkIntervalSet is the result of one batched working-interval query:
// ordered intervals keyed by resource and, for resources without their own
// schedule, by calendar.
type WorkIntervalSet struct {
	ByResource map[string][]timeutil.Interval
	ByCalendar map[string][]timeutil.Interval
}

// For picks the intervals for a resource, falling back to the calendar.
func (s WorkIntervalSet) For(resourceID, calendarID string) []timeutil.Interval {
	if ivs, ok := s.ByResource[resourceID]; ok && len(ivs) > 0 {
		return ivs
	}
	return s.ByCalendar[calendarID]
}

// DaysData is the day/hour summary the calendar service reports for an
// employee over a range.
type DaysData struct {
	Days  float64
	Hours float64
}

// CalendarService is the contract of the external resource-calendar engine.
// It accepts UTC timestamps and returns results already normalized to
// hours; interval intersection and per-day totals are its responsibility.
type CalendarService interface {
	// WorkIntervals resolves working time for a set of resources and
	// fallback calendars over one shared range. Callers batch: one call
	// spans the min/max window of a whole recompute set.
	WorkIntervals(ctx context.Context, resourceIDs, calendarIDs []string, from, to time.Time) (WorkIntervalSet, error)

	// DayTotals returns net working hours per calendar date for a
	// resource, absences already deducted. Keys are the calendar date in
	// the resource's timezone rendered as a UTC midnight, so callers can
	// look dates up by walking the range in UTC.
	DayTotals(ctx context.Context, resourceID string, from, to time.Time) (map[time.Time]float64, error)

	// WorkingDaysData summarizes an employee's working days and hours
	// inside the window.
	WorkingDaysData(ctx context.Context, employee *domain.Employee, from, to time.Time) (DaysData, error)
}
