// Package leavewarning detects leave overlapping planned tasks and renders
// the per-employee warning text shown on a task.
package leavewarning

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/planhr/backend/domain"
	"github.com/planhr/backend/pkg/timeutil"
	"github.com/planhr/backend/repository"
)

const (
	dateFormat = "Jan 02, 2006"
	timeFormat = "3:04 PM"
)

type Detector struct {
	employees repository.EmployeeRepository
	leaves    repository.LeaveStore
	service   repository.CalendarService
	logger    *zap.Logger
	now       func() time.Time
}

func New(
	employees repository.EmployeeRepository,
	leaves repository.LeaveStore,
	service repository.CalendarService,
	logger *zap.Logger,
) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		employees: employees,
		leaves:    leaves,
		service:   service,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the time source; used by tests.
func (d *Detector) WithClock(now func() time.Time) *Detector {
	d.now = now
	return d
}

// ComputeWarnings fills LeaveWarning on each task, empty when no leave
// overlaps. Timestamps in the text are localized to tz (IANA name, empty
// means UTC).
func (d *Detector) ComputeWarnings(ctx context.Context, tasks []*domain.Task, tz string) error {
	var assigned []*domain.Task
	for _, task := range tasks {
		task.LeaveWarning = ""
		if task.EmployeeID != "" && !task.StartAt.IsZero() {
			assigned = append(assigned, task)
		}
	}
	if len(assigned) == 0 {
		return nil
	}

	from, to := assigned[0].StartAt, assigned[0].EndAt
	employeeIDs := make(map[string]struct{})
	for _, task := range assigned {
		if task.StartAt.Before(from) {
			from = task.StartAt
		}
		if task.EndAt.After(to) {
			to = task.EndAt
		}
		employeeIDs[task.EmployeeID] = struct{}{}
	}
	// Past overlap is history; warnings only cover today onward.
	if now := d.now().UTC(); from.Before(now) {
		from = now
	}
	if to.Before(from) {
		return nil
	}

	ids := make([]string, 0, len(employeeIDs))
	for id := range employeeIDs {
		ids = append(ids, id)
	}
	employees, err := d.employees.ListByIDs(ctx, ids)
	if err != nil {
		return domain.WrapError(domain.ErrCodeTransient, "employee lookup failed", err)
	}
	byEmployee, err := d.collect(ctx, employees, ids, from, to)
	if err != nil {
		return err
	}

	loc := timeutil.LoadLocation(tz)
	for _, task := range assigned {
		employee := employees[task.EmployeeID]
		leaves := byEmployee[task.EmployeeID]
		if employee == nil || len(leaves) == 0 {
			continue
		}
		periods, err := d.groupPeriods(ctx, leaves, employee, task.StartAt, task.EndAt)
		if err != nil {
			d.logger.Warn("leave grouping failed",
				zap.String("task_id", task.ID),
				zap.String("employee_id", employee.ID),
				zap.Error(err))
			continue
		}
		task.LeaveWarning = renderWarning(employee.Name, periods, loc)
	}
	return nil
}

// collect merges calendar closures relevant to each employee with the
// employees' own pending and approved requests, ordered by start time.
func (d *Detector) collect(
	ctx context.Context,
	employees map[string]*domain.Employee,
	ids []string,
	from, to time.Time,
) (map[string][]domain.Leave, error) {
	closures, err := d.leaves.ClosuresOverlapping(ctx, from, to)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeTransient, "leave store unavailable", err)
	}
	requests, err := d.leaves.RequestsOverlapping(ctx, ids, from, to)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeTransient, "leave store unavailable", err)
	}

	byEmployee := make(map[string][]domain.Leave)
	for _, closure := range closures {
		for _, employee := range employees {
			if closure.AppliesTo(employee) {
				byEmployee[employee.ID] = append(byEmployee[employee.ID], closure)
			}
		}
	}
	for _, request := range requests {
		byEmployee[request.EmployeeID] = append(byEmployee[request.EmployeeID], request)
	}
	for _, leaves := range byEmployee {
		sortByStart(leaves)
	}
	return byEmployee, nil
}

// groupPeriods folds overlapping leaves into display periods. Adjacent
// leaves merge unless a day with net working time separates the open
// period's start from the next leave's end.
func (d *Detector) groupPeriods(
	ctx context.Context,
	leaves []domain.Leave,
	employee *domain.Employee,
	from, to time.Time,
) ([]domain.WorkingPeriod, error) {
	dayTotals, err := d.service.DayTotals(ctx, employee.ResourceID, from, to)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeTransient, "calendar service unavailable", err)
	}

	var periods []domain.WorkingPeriod
	for _, leave := range leaves {
		if !leave.Overlaps(from, to) {
			continue
		}
		days := leave.DayCount()
		validated := leave.Validated || leave.Source == domain.LeaveClosure

		if len(periods) == 0 || hasWorkingTime(periods[len(periods)-1].From, leave.EndAt, dayTotals) {
			periods = append(periods, domain.WorkingPeriod{
				From:      leave.StartAt,
				To:        leave.EndAt,
				Validated: validated,
				ShowHours: days <= 1,
			})
			continue
		}

		last := &periods[len(periods)-1]
		last.Validated = validated
		if last.To.Before(leave.EndAt) {
			last.To = leave.EndAt
		}
		last.ShowHours = last.ShowHours || days <= 1
	}
	return periods, nil
}

// hasWorkingTime reports whether any calendar date between start and end has
// non-zero net working hours. Day totals are net of absences, so a gap fully
// covered by leave or weekend does not split a period.
func hasWorkingTime(start, end time.Time, dayTotals map[time.Time]float64) bool {
	for _, date := range timeutil.DatesBetween(start, end, time.UTC) {
		if dayTotals[date] > 0 {
			return true
		}
	}
	return false
}

// renderWarning formats merged periods, one sentence per contiguous run of
// equal validation state.
func renderWarning(employeeName string, periods []domain.WorkingPeriod, loc *time.Location) string {
	if len(periods) == 0 {
		return ""
	}

	var b strings.Builder
	for _, run := range partitionByValidated(periods) {
		var phrases strings.Builder
		for i, period := range run {
			prefix := ""
			if i > 0 {
				if i == len(run)-1 {
					prefix = " and"
				} else {
					prefix = ","
				}
			}
			phrases.WriteString(formatPeriod(period, prefix, loc))
		}
		state := "has requested time off"
		if run[0].Validated {
			state = "is on time off"
		}
		b.WriteString(employeeName)
		b.WriteString(" ")
		b.WriteString(state)
		b.WriteString(phrases.String())
		b.WriteString(". \n")
	}
	return b.String()
}

// partitionByValidated splits periods into contiguous runs sharing the same
// validation state, preserving order.
func partitionByValidated(periods []domain.WorkingPeriod) [][]domain.WorkingPeriod {
	var runs [][]domain.WorkingPeriod
	for _, p := range periods {
		if n := len(runs); n > 0 && runs[n-1][0].Validated == p.Validated {
			runs[n-1] = append(runs[n-1], p)
			continue
		}
		runs = append(runs, []domain.WorkingPeriod{p})
	}
	return runs
}

func formatPeriod(p domain.WorkingPeriod, prefix string, loc *time.Location) string {
	from := p.From.In(loc)
	to := p.To.In(loc)
	if p.ShowHours {
		return prefix + " from the " + from.Format(dateFormat) + " at " + from.Format(timeFormat) +
			" to the " + to.Format(dateFormat) + " at " + to.Format(timeFormat)
	}
	return prefix + " from the " + from.Format(dateFormat) + " to the " + to.Format(dateFormat)
}

func sortByStart(leaves []domain.Leave) {
	sort.SliceStable(leaves, func(i, j int) bool {
		return leaves[i].StartAt.Before(leaves[j].StartAt)
	})
}
