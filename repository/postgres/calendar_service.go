package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/planhr/backend/domain"
	"github.com/planhr/backend/pkg/timeutil"
	"github.com/planhr/backend/repository"
)

// attendance is one weekly schedule slot of a calendar. Weekday follows
// time.Weekday numbering (0 = Sunday); hours are fractional local hours.
type attendance struct {
	weekday  int
	hourFrom float64
	hourTo   float64
}

type schedule struct {
	loc   *time.Location
	slots []attendance
}

type calendarService struct {
	pool *pgxpool.Pool
}

// NewCalendarService builds working intervals and day totals from the
// calendar schedule tables. Day totals are net of validated absences.
func NewCalendarService(pool *pgxpool.Pool) repository.CalendarService {
	return &calendarService{pool: pool}
}

func (s *calendarService) WorkIntervals(ctx context.Context, resourceIDs, calendarIDs []string, from, to time.Time) (repository.WorkIntervalSet, error) {
	set := repository.WorkIntervalSet{
		ByResource: make(map[string][]timeutil.Interval),
		ByCalendar: make(map[string][]timeutil.Interval),
	}

	resourceCals, err := s.resourceCalendars(ctx, resourceIDs)
	if err != nil {
		return set, err
	}

	all := make(map[string]struct{}, len(calendarIDs))
	for _, id := range calendarIDs {
		if id != "" {
			all[id] = struct{}{}
		}
	}
	for _, id := range resourceCals {
		if id != "" {
			all[id] = struct{}{}
		}
	}

	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	schedules, err := s.loadSchedules(ctx, ids)
	if err != nil {
		return set, err
	}

	expanded := make(map[string][]timeutil.Interval, len(schedules))
	for id, sched := range schedules {
		expanded[id] = expandSchedule(sched, from, to)
	}

	for _, id := range calendarIDs {
		set.ByCalendar[id] = expanded[id]
	}
	for _, resourceID := range resourceIDs {
		set.ByResource[resourceID] = expanded[resourceCals[resourceID]]
	}
	return set, nil
}

func (s *calendarService) DayTotals(ctx context.Context, resourceID string, from, to time.Time) (map[time.Time]float64, error) {
	resourceCals, err := s.resourceCalendars(ctx, []string{resourceID})
	if err != nil {
		return nil, err
	}
	calendarID := resourceCals[resourceID]
	if calendarID == "" {
		return map[time.Time]float64{}, nil
	}

	schedules, err := s.loadSchedules(ctx, []string{calendarID})
	if err != nil {
		return nil, err
	}
	sched, ok := schedules[calendarID]
	if !ok {
		return map[time.Time]float64{}, nil
	}

	intervals := expandSchedule(sched, from, to)
	totals := make(map[time.Time]float64, len(intervals))
	for _, iv := range intervals {
		totals[dateKey(iv.Start, sched.loc)] += iv.Hours()
	}

	absences, err := s.validatedAbsences(ctx, resourceID, from, to)
	if err != nil {
		return nil, err
	}
	for _, leave := range absences {
		for _, iv := range intervals {
			start := iv.Start
			if start.Before(leave.StartAt) {
				start = leave.StartAt
			}
			end := iv.End
			if end.After(leave.EndAt) {
				end = leave.EndAt
			}
			if !end.After(start) {
				continue
			}
			key := dateKey(iv.Start, sched.loc)
			totals[key] -= end.Sub(start).Hours()
			if totals[key] < 0 {
				totals[key] = 0
			}
		}
	}
	return totals, nil
}

func (s *calendarService) WorkingDaysData(ctx context.Context, employee *domain.Employee, from, to time.Time) (repository.DaysData, error) {
	totals, err := s.DayTotals(ctx, employee.ResourceID, from, to)
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

func (s *calendarService) resourceCalendars(ctx context.Context, resourceIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(resourceIDs))
	if len(resourceIDs) == 0 {
		return out, nil
	}
	const query = `SELECT resource_id, calendar_id FROM employees WHERE resource_id = ANY($1)`
	rows, err := s.pool.Query(ctx, query, resourceIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var resourceID, calendarID string
		if err := rows.Scan(&resourceID, &calendarID); err != nil {
			return nil, err
		}
		out[resourceID] = calendarID
	}
	return out, rows.Err()
}

func (s *calendarService) loadSchedules(ctx context.Context, calendarIDs []string) (map[string]*schedule, error) {
	out := make(map[string]*schedule, len(calendarIDs))
	if len(calendarIDs) == 0 {
		return out, nil
	}

	const calQuery = `SELECT id, timezone FROM calendars WHERE id = ANY($1)`
	rows, err := s.pool.Query(ctx, calQuery, calendarIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id, tz string
		if err := rows.Scan(&id, &tz); err != nil {
			return nil, err
		}
		out[id] = &schedule{loc: timeutil.LoadLocation(tz)}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const slotQuery = `
	SELECT calendar_id, weekday, hour_from, hour_to
	FROM calendar_attendances
	WHERE calendar_id = ANY($1)
	ORDER BY calendar_id, weekday, hour_from
	`
	slotRows, err := s.pool.Query(ctx, slotQuery, calendarIDs)
	if err != nil {
		return nil, err
	}
	defer slotRows.Close()
	for slotRows.Next() {
		var calendarID string
		var slot attendance
		if err := slotRows.Scan(&calendarID, &slot.weekday, &slot.hourFrom, &slot.hourTo); err != nil {
			return nil, err
		}
		if sched, ok := out[calendarID]; ok {
			sched.slots = append(sched.slots, slot)
		}
	}
	return out, slotRows.Err()
}

func (s *calendarService) validatedAbsences(ctx context.Context, resourceID string, from, to time.Time) ([]domain.Leave, error) {
	const query = `
	SELECT start_at, end_at
	FROM leaves
	WHERE resource_id = $1
	  AND validated
	  AND start_at <= $2
	  AND end_at >= $3
	`
	rows, err := s.pool.Query(ctx, query, resourceID, to, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Leave
	for rows.Next() {
		var l domain.Leave
		if err := rows.Scan(&l.StartAt, &l.EndAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// expandSchedule turns a weekly schedule into concrete UTC intervals over
// [from, to], clipped to the window.
func expandSchedule(sched *schedule, from, to time.Time) []timeutil.Interval {
	if sched == nil || len(sched.slots) == 0 {
		return nil
	}
	var out []timeutil.Interval
	for _, date := range timeutil.DatesBetween(from, to, sched.loc) {
		for _, slot := range sched.slots {
			if int(date.Weekday()) != slot.weekday {
				continue
			}
			start := date.Add(time.Duration(slot.hourFrom * float64(time.Hour))).UTC()
			end := date.Add(time.Duration(slot.hourTo * float64(time.Hour))).UTC()
			if start.Before(from) {
				start = from
			}
			if end.After(to) {
				end = to
			}
			if end.After(start) {
				out = append(out, timeutil.Interval{Start: start, End: end})
			}
		}
	}
	return out
}

// dateKey maps a timestamp to its local calendar date rendered as UTC
// midnight, the keying DayTotals consumers expect.
func dateKey(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
