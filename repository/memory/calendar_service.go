package memory

import (
	"context"
	"sync"
	"time"

	"github.com/planhr/backend/domain"
	"github.com/planhr/backend/pkg/timeutil"
	"github.com/planhr/backend/repository"
)

// CalendarService is a scriptable stand-in for the external resource
// calendar: tests seed working intervals and day totals directly.
type CalendarService struct {
	mu         sync.RWMutex
	byResource map[string][]timeutil.Interval
	byCalendar map[string][]timeutil.Interval
	dayTotals  map[string]map[time.Time]float64
}

func NewCalendarService() *CalendarService {
	return &CalendarService{
		byResource: make(map[string][]timeutil.Interval),
		byCalendar: make(map[string][]timeutil.Interval),
		dayTotals:  make(map[string]map[time.Time]float64),
	}
}

// SetResourceIntervals seeds the working intervals of a resource.
func (s *CalendarService) SetResourceIntervals(resourceID string, intervals ...timeutil.Interval) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byResource[resourceID] = intervals
}

// SetCalendarIntervals seeds the working intervals of a calendar.
func (s *CalendarService) SetCalendarIntervals(calendarID string, intervals ...timeutil.Interval) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byCalendar[calendarID] = intervals
}

// SetDayTotal seeds the net working hours of a resource on a date. The date
// is midnight-truncated UTC.
func (s *CalendarService) SetDayTotal(resourceID string, date time.Time, hours float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dayTotals[resourceID] == nil {
		s.dayTotals[resourceID] = make(map[time.Time]float64)
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	s.dayTotals[resourceID][day] = hours
}

// WeekdaySchedule seeds Monday-to-Friday working intervals and matching day
// totals over [from, to] for a resource: startHour to endHour local UTC.
func (s *CalendarService) WeekdaySchedule(resourceID string, from, to time.Time, startHour, endHour int) {
	for _, date := range timeutil.DatesBetween(from, to, time.UTC) {
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		iv := timeutil.Interval{
			Start: date.Add(time.Duration(startHour) * time.Hour),
			End:   date.Add(time.Duration(endHour) * time.Hour),
		}
		s.mu.Lock()
		s.byResource[resourceID] = append(s.byResource[resourceID], iv)
		s.mu.Unlock()
		s.SetDayTotal(resourceID, date, float64(endHour-startHour))
	}
}

func (s *CalendarService) WorkIntervals(_ context.Context, resourceIDs, calendarIDs []string, from, to time.Time) (repository.WorkIntervalSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := repository.WorkIntervalSet{
		ByResource: make(map[string][]timeutil.Interval),
		ByCalendar: make(map[string][]timeutil.Interval),
	}
	for _, id := range resourceIDs {
		set.ByResource[id] = clipAll(s.byResource[id], from, to)
	}
	for _, id := range calendarIDs {
		set.ByCalendar[id] = clipAll(s.byCalendar[id], from, to)
	}
	return set, nil
}

func (s *CalendarService) DayTotals(_ context.Context, resourceID string, from, to time.Time) (map[time.Time]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[time.Time]float64)
	for date, hours := range s.dayTotals[resourceID] {
		if !date.Before(truncate(from)) && !date.After(truncate(to)) {
			out[date] = hours
		}
	}
	return out, nil
}

func (s *CalendarService) WorkingDaysData(_ context.Context, employee *domain.Employee, from, to time.Time) (repository.DaysData, error) {
	totals, err := s.DayTotals(context.Background(), employee.ResourceID, from, to)
	if err != nil {
		return repository.DaysData{}, err
	}
	var data repository.DaysData
	for _, hours := range totals {
		if hours > 0 {
			data.Days++
			data.Hours += hours
		}
	}
	return data, nil
}

func clipAll(intervals []timeutil.Interval, from, to time.Time) []timeutil.Interval {
	var out []timeutil.Interval
	for _, iv := range intervals {
		start := iv.Start
		if start.Before(from) {
			start = from
		}
		end := iv.End
		if end.After(to) {
			end = to
		}
		if end.After(start) {
			out = append(out, timeutil.Interval{Start: start, End: end})
		}
	}
	return out
}

func truncate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
