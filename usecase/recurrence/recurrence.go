// Package recurrence owns the lifecycle of task series: generating
// instances from a rule, extending horizons and pruning stale instances
// when rules change.
package recurrence

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/planhr/backend/domain"
	"github.com/planhr/backend/pkg/timeutil"
	"github.com/planhr/backend/repository"
)

const (
	// maxIterations bounds generation against runaway rules.
	maxIterations = 365 * 5
	// maxHorizonDays caps how far a count-bounded rule may reach.
	maxHorizonDays = 999
	// defaultGenerationMonths applies when a company has no configured
	// generation interval.
	defaultGenerationMonths = 1
)

// Locker serializes reconciliation per recurrence id. The horizon sweep and
// interactive edits may otherwise interleave the template read with the
// batch write.
type Locker interface {
	// Acquire blocks until the key is held and returns the release
	// function.
	Acquire(ctx context.Context, key string) (func(), error)
}

// RuleParams are the user-editable recurrence settings.
type RuleParams struct {
	Interval int               `json:"interval"`
	Unit     domain.RepeatUnit `json:"unit"`
	End      domain.EndPolicy  `json:"end"`
}

type Engine struct {
	tasks       repository.TaskRepository
	recurrences repository.RecurrenceRepository
	companies   repository.CompanyRepository
	employees   repository.EmployeeRepository
	calendars   repository.CalendarRepository
	locker      Locker
	logger      *zap.Logger

	generationMonths int
	now              func() time.Time
}

func New(
	tasks repository.TaskRepository,
	recurrences repository.RecurrenceRepository,
	companies repository.CompanyRepository,
	employees repository.EmployeeRepository,
	calendars repository.CalendarRepository,
	locker Locker,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		tasks:            tasks,
		recurrences:      recurrences,
		companies:        companies,
		employees:        employees,
		calendars:        calendars,
		locker:           locker,
		logger:           logger,
		generationMonths: defaultGenerationMonths,
		now:              time.Now,
	}
}

// WithGenerationMonths sets the process-wide default extension window.
func (e *Engine) WithGenerationMonths(months int) *Engine {
	if months > 0 {
		e.generationMonths = months
	}
	return e
}

// WithClock overrides the time source; used by tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// SetRepeat turns a task's recurrence on or off. Enabling creates the rule
// and generates the series; disabling prunes future planned instances and
// removes the rule.
func (e *Engine) SetRepeat(ctx context.Context, task *domain.Task, enabled bool, params RuleParams) error {
	switch {
	case enabled && task.RecurrenceID == "":
		rec := &domain.Recurrence{
			Interval:  params.Interval,
			Unit:      params.Unit,
			End:       params.End,
			CompanyID: task.CompanyID,
		}
		if err := rec.Validate(); err != nil {
			return err
		}
		if rec.End.Type == domain.EndCount {
			// The new series anchors on this task, so the hard cap can
			// be checked before anything is written.
			if _, err := boundaryFrom(task.EndAt, rec); err != nil {
				return err
			}
		}
		created, err := e.recurrences.Create(ctx, rec)
		if err != nil {
			return err
		}
		task.RecurrenceID = created.ID
		if err := e.tasks.Update(ctx, task); err != nil {
			return err
		}
		if err := e.Reconcile(ctx, created, nil); err != nil {
			e.rollbackEnable(ctx, task, created.ID)
			return err
		}
		return nil

	case !enabled && task.RecurrenceID != "":
		rec, err := e.recurrences.GetByID(ctx, task.RecurrenceID)
		if err != nil {
			return err
		}
		release, err := e.locker.Acquire(ctx, rec.ID)
		if err != nil {
			return err
		}
		defer release()

		if _, err := e.tasks.DeletePlannedFrom(ctx, rec.ID, task.EndAt); err != nil {
			return err
		}
		if err := e.recurrences.Delete(ctx, rec.ID); err != nil {
			return err
		}
		task.RecurrenceID = ""
		return e.tasks.Update(ctx, task)
	}
	return nil
}

// UpdateRule applies edited parameters to the task's active rule, prunes
// the now-stale future instances and regenerates. Instances that advanced
// past planned are preserved.
func (e *Engine) UpdateRule(ctx context.Context, task *domain.Task, params RuleParams) error {
	if task.RecurrenceID == "" {
		return domain.ErrRecurrenceNotFound
	}
	rec, err := e.recurrences.GetByID(ctx, task.RecurrenceID)
	if err != nil {
		return err
	}

	release, err := e.locker.Acquire(ctx, rec.ID)
	if err != nil {
		return err
	}
	defer release()

	cadenceChanged := params.Interval != rec.Interval || params.Unit != rec.Unit
	rec.Interval = params.Interval
	rec.Unit = params.Unit
	rec.End = params.End
	if err := rec.Validate(); err != nil {
		return err
	}

	// Count rules are checked against the hard cap up front so a rejected
	// edit leaves the stored rule and its instances untouched.
	var countLimit time.Time
	if rec.End.Type == domain.EndCount {
		countLimit, err = e.countBoundary(ctx, rec)
		if err != nil {
			return err
		}
	}

	pruneFrom := task.EndAt
	if !cadenceChanged {
		switch rec.End.Type {
		case domain.EndUntil:
			pruneFrom = rec.End.Until
		case domain.EndCount:
			if !countLimit.IsZero() {
				pruneFrom = countLimit
			}
		}
	}

	if err := e.recurrences.Update(ctx, rec); err != nil {
		return err
	}
	if _, err := e.tasks.DeletePlannedFrom(ctx, rec.ID, pruneFrom); err != nil {
		return err
	}
	return e.reconcile(ctx, rec, nil)
}

// Prune deletes planned instances of the recurrence starting at or after
// from.
func (e *Engine) Prune(ctx context.Context, recurrenceID string, from time.Time) error {
	release, err := e.locker.Acquire(ctx, recurrenceID)
	if err != nil {
		return err
	}
	defer release()
	_, err = e.tasks.DeletePlannedFrom(ctx, recurrenceID, from)
	return err
}

// Reconcile extends the series up to the horizon (nil means one generation
// interval past now). Safe to call repeatedly: generation starts strictly
// after the latest instance, so an unchanged horizon adds nothing.
func (e *Engine) Reconcile(ctx context.Context, rec *domain.Recurrence, horizon *time.Time) error {
	release, err := e.locker.Acquire(ctx, rec.ID)
	if err != nil {
		return err
	}
	defer release()
	return e.reconcile(ctx, rec, horizon)
}

func (e *Engine) reconcile(ctx context.Context, rec *domain.Recurrence, horizon *time.Time) error {
	template, err := e.tasks.LatestByRecurrence(ctx, rec.ID)
	if err != nil {
		return err
	}
	if template == nil {
		// No template left to repeat from; the rule heals itself by
		// going away.
		e.logger.Warn("deleting orphaned recurrence", zap.String("recurrence_id", rec.ID))
		return e.recurrences.Delete(ctx, rec.ID)
	}

	limit, err := e.horizonLimit(ctx, rec, horizon)
	if err != nil {
		return err
	}

	loc := e.resolveLocation(ctx, template, rec)
	duration := template.EndAt.Sub(template.StartAt)

	var batch []*domain.Task
	for k := 1; k <= maxIterations; k++ {
		start := timeutil.AddCalendarDelta(template.StartAt, k*rec.Interval, rec.Unit, loc)
		if !start.Before(limit) {
			break
		}
		batch = append(batch, template.CopyForRecurrence(start, start.Add(duration), rec.ID, rec.CompanyID))
	}
	if len(batch) == 0 {
		return nil
	}

	if err := e.tasks.BulkCreate(ctx, batch); err != nil {
		return err
	}
	last := batch[len(batch)-1].StartAt
	rec.LastGeneratedStart = &last
	return e.recurrences.Update(ctx, rec)
}

// horizonLimit resolves the generation boundary: the lesser of the rule's
// own end and the extension window.
func (e *Engine) horizonLimit(ctx context.Context, rec *domain.Recurrence, horizon *time.Time) (time.Time, error) {
	stop := e.defaultHorizon(ctx, rec.CompanyID, e.now().UTC())
	if horizon != nil {
		stop = *horizon
	}

	var end time.Time
	switch rec.End.Type {
	case domain.EndUntil:
		end = rec.End.Until
	case domain.EndCount:
		boundary, err := e.countBoundary(ctx, rec)
		if err != nil {
			return time.Time{}, err
		}
		end = boundary
	}
	if !end.IsZero() && end.Before(stop) {
		return end, nil
	}
	return stop, nil
}

// countBoundary computes the final datetime of a count-bounded rule from
// the earliest instance's end. Rules reaching past the hard cap are
// rejected before anything is generated.
func (e *Engine) countBoundary(ctx context.Context, rec *domain.Recurrence) (time.Time, error) {
	anchor, err := e.tasks.EarliestByRecurrence(ctx, rec.ID)
	if err != nil {
		return time.Time{}, err
	}
	if anchor == nil {
		return time.Time{}, nil
	}
	return boundaryFrom(anchor.EndAt, rec)
}

func boundaryFrom(anchorEnd time.Time, rec *domain.Recurrence) (time.Time, error) {
	boundary := timeutil.AddCalendarDelta(anchorEnd, rec.End.Count*rec.Interval, rec.Unit, time.UTC)
	if boundary.Sub(anchorEnd) > maxHorizonDays*24*time.Hour {
		return time.Time{}, domain.ErrHorizonTooFar
	}
	return boundary, nil
}

// rollbackEnable undoes a half-applied enable when generation fails: the
// task link is cleared and the freshly created rule removed so sweeps never
// pick it up.
func (e *Engine) rollbackEnable(ctx context.Context, task *domain.Task, recurrenceID string) {
	task.RecurrenceID = ""
	if err := e.tasks.Update(ctx, task); err != nil {
		e.logger.Error("unlinking task after failed enable",
			zap.String("task_id", task.ID), zap.Error(err))
	}
	if err := e.recurrences.Delete(ctx, recurrenceID); err != nil {
		e.logger.Error("removing recurrence after failed enable",
			zap.String("recurrence_id", recurrenceID), zap.Error(err))
	}
}

// SweepHorizons is the cron entry point: every recurrence whose high-water
// mark trails now plus the company's generation interval gets extended.
// Failures are isolated per recurrence; the next sweep retries them.
func (e *Engine) SweepHorizons(ctx context.Context, now time.Time) error {
	companies, err := e.companies.List(ctx)
	if err != nil {
		return domain.WrapError(domain.ErrCodeTransient, "company listing failed", err)
	}

	now = now.UTC()
	for _, company := range companies {
		months := company.GenerationMonths
		if months <= 0 {
			months = e.generationMonths
		}
		horizon := timeutil.AddCalendarDelta(now, months, domain.UnitMonth, time.UTC)
		cutoff := timeutil.AddCalendarDelta(now, -months, domain.UnitMonth, time.UTC)

		due, err := e.recurrences.ListDue(ctx, company.ID, horizon, cutoff)
		if err != nil {
			e.logger.Error("listing due recurrences failed",
				zap.String("company_id", company.ID), zap.Error(err))
			continue
		}
		for i := range due {
			rec := due[i]
			if err := e.Reconcile(ctx, &rec, &horizon); err != nil {
				e.logger.Error("recurrence reconciliation failed",
					zap.String("recurrence_id", rec.ID),
					zap.String("company_id", company.ID),
					zap.Error(err))
			}
		}
	}
	return nil
}

// defaultHorizon is now plus the company's generation interval.
func (e *Engine) defaultHorizon(ctx context.Context, companyID string, now time.Time) time.Time {
	months := e.generationMonths
	if companyID != "" {
		if company, err := e.companies.GetByID(ctx, companyID); err == nil && company.GenerationMonths > 0 {
			months = company.GenerationMonths
		}
	}
	return timeutil.AddCalendarDelta(now, months, domain.UnitMonth, time.UTC)
}

// resolveLocation picks the timezone recurrence steps are computed in: the
// employee's, else the employee calendar's, else the company calendar's,
// else UTC.
func (e *Engine) resolveLocation(ctx context.Context, template *domain.Task, rec *domain.Recurrence) *time.Location {
	if template.EmployeeID != "" {
		if employee, err := e.employees.GetByID(ctx, template.EmployeeID); err == nil {
			if employee.Timezone != "" {
				return timeutil.LoadLocation(employee.Timezone)
			}
			if employee.CalendarID != "" {
				if cal, err := e.calendars.GetByID(ctx, employee.CalendarID); err == nil && cal.Timezone != "" {
					return timeutil.LoadLocation(cal.Timezone)
				}
			}
		}
	}
	if rec.CompanyID != "" {
		if company, err := e.companies.GetByID(ctx, rec.CompanyID); err == nil && company.CalendarID != "" {
			if cal, err := e.calendars.GetByID(ctx, company.CalendarID); err == nil && cal.Timezone != "" {
				return timeutil.LoadLocation(cal.Timezone)
			}
		}
	}
	return time.UTC
}
