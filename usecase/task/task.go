// Package task is the lifecycle controller: it validates writes, keeps the
// derived allocation fields fresh and advances task states over time.
package task

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/planhr/backend/domain"
	"github.com/planhr/backend/repository"
	"github.com/planhr/backend/usecase/allocation"
	"github.com/planhr/backend/usecase/leavewarning"
)

type UseCase struct {
	tasks       repository.TaskRepository
	employees   repository.EmployeeRepository
	companies   repository.CompanyRepository
	recurrences repository.RecurrenceRepository
	service     repository.CalendarService
	allocator   *allocation.Calculator
	warnings    *leavewarning.Detector
	logger      *zap.Logger
}

func New(
	tasks repository.TaskRepository,
	employees repository.EmployeeRepository,
	companies repository.CompanyRepository,
	recurrences repository.RecurrenceRepository,
	service repository.CalendarService,
	allocator *allocation.Calculator,
	warnings *leavewarning.Detector,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:       tasks,
		employees:   employees,
		companies:   companies,
		recurrences: recurrences,
		service:     service,
		allocator:   allocator,
		warnings:    warnings,
		logger:      logger,
	}
}

func (uc *UseCase) ListTasks(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	return uc.tasks.List(ctx, filter)
}

func (uc *UseCase) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return uc.tasks.GetByID(ctx, id)
}

// CreateTask validates the task, resolves defaults from the employee
// record, recomputes the derived fields and persists it. tz localizes the
// leave warning for the requesting user.
func (uc *UseCase) CreateTask(ctx context.Context, task *domain.Task, tz string) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.State == "" {
		task.State = domain.StatePlanned
	}
	if task.AllocatedPercentage == 0 {
		task.AllocatedPercentage = 100
	}
	if err := uc.prepare(ctx, task, tz); err != nil {
		return nil, err
	}
	return uc.tasks.Create(ctx, task)
}

// UpdateTask revalidates and recomputes before persisting. Recurrence rule
// edits go through the recurrence engine, not here.
func (uc *UseCase) UpdateTask(ctx context.Context, task *domain.Task, tz string) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if err := uc.prepare(ctx, task, tz); err != nil {
		return nil, err
	}
	if err := uc.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (uc *UseCase) DeleteTask(ctx context.Context, id string) error {
	return uc.tasks.Delete(ctx, id)
}

// SetState forces a task into the given state, bypassing the time checks.
// Used for manual corrections; cancelled is only ever reached this way.
func (uc *UseCase) SetState(ctx context.Context, id string, state domain.TaskState) (*domain.Task, error) {
	if !state.Valid() {
		return nil, domain.NewErrorf(domain.ErrCodeValidation, "unknown task state %q", state)
	}
	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	task.State = state
	if err := uc.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// SweepLifecycle advances states from the clock: in-progress tasks whose
// window closed become finished, then planned tasks whose window opened
// become in progress. Both steps are pure time comparisons and re-running
// them at the same instant changes nothing.
func (uc *UseCase) SweepLifecycle(ctx context.Context, now time.Time) error {
	now = now.UTC()
	finished, err := uc.tasks.FinishElapsed(ctx, now)
	if err != nil {
		return domain.WrapError(domain.ErrCodeTransient, "finishing elapsed tasks failed", err)
	}
	started, err := uc.tasks.StartDue(ctx, now)
	if err != nil {
		return domain.WrapError(domain.ErrCodeTransient, "starting due tasks failed", err)
	}
	if len(finished) > 0 || len(started) > 0 {
		uc.logger.Info("lifecycle sweep advanced tasks",
			zap.Int("finished", len(finished)),
			zap.Int("started", len(started)))
	}
	return nil
}

// LeaveWarning recomputes and returns the conflict warning for one task.
func (uc *UseCase) LeaveWarning(ctx context.Context, id, tz string) (string, error) {
	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if err := uc.warnings.ComputeWarnings(ctx, []*domain.Task{task}, tz); err != nil {
		return "", err
	}
	return task.LeaveWarning, nil
}

// CreateForSubject plans a task against a project, ticket or generic
// subject for the employee behind a user account.
func (uc *UseCase) CreateForSubject(ctx context.Context, userID string, subject domain.SubjectRef, start, end time.Time, tz string) (*domain.Task, error) {
	if !subject.Kind.Valid() {
		return nil, domain.NewErrorf(domain.ErrCodeValidation, "unsupported subject kind %q", subject.Kind)
	}
	employee, err := uc.employees.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, domain.NewError(domain.ErrCodeValidation, "the selected user does not have an associated employee")
	}
	task := &domain.Task{
		Subject:    subject,
		EmployeeID: employee.ID,
		CompanyID:  employee.CompanyID,
		StartAt:    start,
		EndAt:      end,
		State:      domain.StatePlanned,
	}
	return uc.CreateTask(ctx, task, tz)
}

// CountForSubject reports how many tasks are linked to a subject; hosts use
// it for their linked-task counters.
func (uc *UseCase) CountForSubject(ctx context.Context, subject domain.SubjectRef) (int, error) {
	return uc.tasks.CountBySubject(ctx, subject)
}

// OverlapCount reports how many other tasks of the same employee intersect
// this task's window.
func (uc *UseCase) OverlapCount(ctx context.Context, id string) (int, error) {
	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return uc.tasks.CountOverlapping(ctx, task)
}

// DefaultWindow snaps a requested window to the company calendar's opening
// hours: first opening to last closing within the range, constrained to the
// first day for same-day requests.
func (uc *UseCase) DefaultWindow(ctx context.Context, companyID string, start, end time.Time) (time.Time, time.Time, error) {
	company, err := uc.companies.GetByID(ctx, companyID)
	if err != nil {
		return start, end, err
	}
	if company.CalendarID == "" {
		return start, end, nil
	}
	set, err := uc.service.WorkIntervals(ctx, nil, []string{company.CalendarID}, start, end)
	if err != nil {
		return start, end, domain.WrapError(domain.ErrCodeTransient, "calendar service unavailable", err)
	}
	intervals := set.ByCalendar[company.CalendarID]
	if len(intervals) == 0 {
		return start, end, nil
	}

	first := intervals[0]
	if end.Sub(start) < 24*time.Hour {
		last := first
		for _, iv := range intervals {
			if sameDate(iv.End, first.Start) {
				last = iv
			}
		}
		return first.Start, last.End, nil
	}
	return first.Start, intervals[len(intervals)-1].End, nil
}

// prepare runs validation, fills directory-derived fields and recomputes
// allocation and leave warnings.
func (uc *UseCase) prepare(ctx context.Context, task *domain.Task, tz string) error {
	if task.EmployeeID != "" && (task.CompanyID == "" || task.ResourceID == "") {
		employee, err := uc.employees.GetByID(ctx, task.EmployeeID)
		if err != nil {
			return err
		}
		if task.CompanyID == "" {
			task.CompanyID = employee.CompanyID
		}
		if task.ResourceID == "" {
			task.ResourceID = employee.ResourceID
		}
	}
	if err := task.Validate(); err != nil {
		return err
	}
	if task.RecurrenceID != "" {
		rec, err := uc.recurrences.GetByID(ctx, task.RecurrenceID)
		if err != nil {
			return err
		}
		if err := rec.OwnsTask(task); err != nil {
			return err
		}
	}
	batch := []*domain.Task{task}
	if err := uc.allocator.ComputeBatch(ctx, batch); err != nil {
		return err
	}
	if err := uc.warnings.ComputeWarnings(ctx, batch, tz); err != nil {
		// A missing warning must not block the write; the conflict text
		// is advisory.
		uc.logger.Warn("leave warning computation failed", zap.String("task_id", task.ID), zap.Error(err))
	}
	return nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
