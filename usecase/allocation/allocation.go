// Package allocation computes the effective working hours a task occupies,
// net of validated leave, together with the derived percentage and
// working-days figures.
package allocation

import (
	"context"

	"go.uber.org/zap"

	"github.com/planhr/backend/domain"
	"github.com/planhr/backend/pkg/timeutil"
	"github.com/planhr/backend/repository"
)

type Calculator struct {
	employees repository.EmployeeRepository
	companies repository.CompanyRepository
	calendars repository.CalendarRepository
	service   repository.CalendarService
	leaves    repository.LeaveStore
	logger    *zap.Logger
}

func New(
	employees repository.EmployeeRepository,
	companies repository.CompanyRepository,
	calendars repository.CalendarRepository,
	service repository.CalendarService,
	leaves repository.LeaveStore,
	logger *zap.Logger,
) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{
		employees: employees,
		companies: companies,
		calendars: calendars,
		service:   service,
		leaves:    leaves,
		logger:    logger,
	}
}

// ComputeBatch fills AllocatedHours, AllocatedPercentage and WorkingDays on
// every task in place. Tasks sharing calendars are served by a single
// working-interval query spanning the whole batch window.
func (c *Calculator) ComputeBatch(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	res, err := c.resolve(ctx, tasks)
	if err != nil {
		return err
	}

	var planning, assigned []*domain.Task
	for _, task := range tasks {
		if task.CompanyID == "" && res.resourceOf(task) == "" {
			planning = append(planning, task)
		} else {
			assigned = append(assigned, task)
		}
	}

	// Unassigned planning entries are percentage-driven, no calendar
	// involved.
	for _, task := range planning {
		task.AllocatedHours = timeutil.Round2(c.cappedDuration(task, res) * task.AllocatedPercentage / 100.0)
		task.WorkingDays = 0
	}

	if len(assigned) == 0 {
		return nil
	}

	intervals, err := c.batchIntervals(ctx, assigned, res)
	if err != nil {
		return err
	}

	leavesByEmployee, err := c.validatedLeaves(ctx, assigned)
	if err != nil {
		return err
	}

	for _, task := range assigned {
		if task.ForceRecompute {
			// Explicit override: raw wall-clock duration, no calendar
			// or leave lookups.
			task.AllocatedHours = timeutil.Round2(task.Duration())
		} else {
			work := intervals.For(res.resourceOf(task), res.effectiveCalendarID(task))
			base := timeutil.ClipHours(work, task.StartAt, task.EndAt)
			leaveHours := c.leaveHours(work, task, leavesByEmployee[task.EmployeeID])
			hours := base - leaveHours
			if hours < 0 {
				hours = 0
			}
			task.AllocatedHours = timeutil.Round2(hours)
		}

		task.AllocatedPercentage = c.percentage(task, res)
		task.WorkingDays = c.workingDays(ctx, task, res)
	}
	return nil
}

// percentage derives the allocation percentage from hours over the capped
// window duration. Degenerate windows keep the stored value.
func (c *Calculator) percentage(task *domain.Task, res *resolution) float64 {
	duration := c.cappedDuration(task, res)
	if duration <= 0 || task.StartAt.Equal(task.EndAt) {
		return task.AllocatedPercentage
	}
	return timeutil.Round2(100 * task.AllocatedHours / duration)
}

// cappedDuration is the wall-clock window length in hours, capped at the
// spanned days times the company calendar's hours per day so off-hours do
// not inflate multi-day windows.
func (c *Calculator) cappedDuration(task *domain.Task, res *resolution) float64 {
	raw := task.Duration()
	cal := res.companyCalendar(task)
	if cal == nil || cal.HoursPerDay <= 0 {
		return raw
	}
	max := float64(timeutil.DaysSpanned(task.StartAt, task.EndAt)) * cal.HoursPerDay
	if max > 0 && raw > max {
		return max
	}
	return raw
}

func (c *Calculator) leaveHours(work []timeutil.Interval, task *domain.Task, leaves []domain.Leave) float64 {
	var total float64
	for _, leave := range leaves {
		if !leave.Overlaps(task.StartAt, task.EndAt) {
			continue
		}
		from := leave.StartAt
		if from.Before(task.StartAt) {
			from = task.StartAt
		}
		to := leave.EndAt
		if to.After(task.EndAt) {
			to = task.EndAt
		}
		total += timeutil.ClipHours(work, from, to)
	}
	return total
}

func (c *Calculator) workingDays(ctx context.Context, task *domain.Task, res *resolution) float64 {
	employee := res.employees[task.EmployeeID]
	if employee == nil || res.effectiveCalendarID(task) == "" {
		return 0
	}
	data, err := c.service.WorkingDaysData(ctx, employee, task.StartAt, task.EndAt)
	if err != nil {
		c.logger.Warn("working days lookup failed",
			zap.String("task_id", task.ID),
			zap.String("employee_id", task.EmployeeID),
			zap.Error(err))
		return 0
	}
	return data.Days
}

func (c *Calculator) batchIntervals(ctx context.Context, tasks []*domain.Task, res *resolution) (repository.WorkIntervalSet, error) {
	from, to := tasks[0].StartAt, tasks[0].EndAt
	resourceSet := make(map[string]struct{})
	calendarSet := make(map[string]struct{})
	for _, task := range tasks {
		if task.StartAt.Before(from) {
			from = task.StartAt
		}
		if task.EndAt.After(to) {
			to = task.EndAt
		}
		if id := res.resourceOf(task); id != "" {
			resourceSet[id] = struct{}{}
		}
		if id := res.effectiveCalendarID(task); id != "" {
			calendarSet[id] = struct{}{}
		}
	}
	return c.service.WorkIntervals(ctx, keys(resourceSet), keys(calendarSet), from, to)
}

func (c *Calculator) validatedLeaves(ctx context.Context, tasks []*domain.Task) (map[string][]domain.Leave, error) {
	from, to := tasks[0].StartAt, tasks[0].EndAt
	ids := make(map[string]struct{})
	for _, task := range tasks {
		if task.StartAt.Before(from) {
			from = task.StartAt
		}
		if task.EndAt.After(to) {
			to = task.EndAt
		}
		if task.EmployeeID != "" {
			ids[task.EmployeeID] = struct{}{}
		}
	}
	requests, err := c.leaves.RequestsOverlapping(ctx, keys(ids), from, to)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeTransient, "leave store unavailable", err)
	}
	byEmployee := make(map[string][]domain.Leave)
	for _, leave := range requests {
		if leave.Validated {
			byEmployee[leave.EmployeeID] = append(byEmployee[leave.EmployeeID], leave)
		}
	}
	return byEmployee, nil
}

// resolution caches the employee, company and calendar records referenced
// by one batch.
type resolution struct {
	employees map[string]*domain.Employee
	companies map[string]*domain.Company
	calendars map[string]*domain.Calendar
}

func (c *Calculator) resolve(ctx context.Context, tasks []*domain.Task) (*resolution, error) {
	ids := make(map[string]struct{})
	for _, task := range tasks {
		if task.EmployeeID != "" {
			ids[task.EmployeeID] = struct{}{}
		}
	}
	employees, err := c.employees.ListByIDs(ctx, keys(ids))
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeTransient, "employee lookup failed", err)
	}

	res := &resolution{
		employees: employees,
		companies: make(map[string]*domain.Company),
		calendars: make(map[string]*domain.Calendar),
	}
	for _, task := range tasks {
		if task.CompanyID == "" {
			continue
		}
		if _, ok := res.companies[task.CompanyID]; ok {
			continue
		}
		company, err := c.companies.GetByID(ctx, task.CompanyID)
		if err != nil {
			c.logger.Warn("company lookup failed", zap.String("company_id", task.CompanyID), zap.Error(err))
			continue
		}
		res.companies[task.CompanyID] = company
	}

	// Wire resource and calendar references through from the directory so
	// later passes do not re-resolve per task.
	for _, task := range tasks {
		if employee := employees[task.EmployeeID]; employee != nil {
			if task.ResourceID == "" {
				task.ResourceID = employee.ResourceID
			}
			if task.CalendarID == "" {
				task.CalendarID = res.effectiveCalendarID(task)
			}
		}
		c.cacheCalendar(ctx, res, res.effectiveCalendarID(task))
		if company := res.companies[task.CompanyID]; company != nil {
			c.cacheCalendar(ctx, res, company.CalendarID)
		}
	}
	return res, nil
}

func (c *Calculator) cacheCalendar(ctx context.Context, res *resolution, id string) {
	if id == "" {
		return
	}
	if _, ok := res.calendars[id]; ok {
		return
	}
	cal, err := c.calendars.GetByID(ctx, id)
	if err != nil {
		c.logger.Warn("calendar lookup failed", zap.String("calendar_id", id), zap.Error(err))
		res.calendars[id] = nil
		return
	}
	res.calendars[id] = cal
}

func (r *resolution) resourceOf(task *domain.Task) string {
	if task.ResourceID != "" {
		return task.ResourceID
	}
	if employee := r.employees[task.EmployeeID]; employee != nil {
		return employee.ResourceID
	}
	return ""
}

// effectiveCalendarID prefers the employee's own calendar and falls back to
// the company default.
func (r *resolution) effectiveCalendarID(task *domain.Task) string {
	if employee := r.employees[task.EmployeeID]; employee != nil && employee.CalendarID != "" {
		return employee.CalendarID
	}
	if company := r.companies[task.CompanyID]; company != nil {
		return company.CalendarID
	}
	return task.CalendarID
}

func (r *resolution) companyCalendar(task *domain.Task) *domain.Calendar {
	if company := r.companies[task.CompanyID]; company != nil {
		return r.calendars[company.CalendarID]
	}
	return r.calendars[r.effectiveCalendarID(task)]
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
