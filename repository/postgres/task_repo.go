package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/planhr/backend/domain"
	"github.com/planhr/backend/repository"
)

const taskColumns = `
	id, kind, subject_id, subject_name, employee_id, resource_id, company_id, calendar_id,
	start_at, end_at, allocated_hours, allocated_percentage, working_days,
	state, force_recompute, recurrence_id, leave_warning, created_at, updated_at
`

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanTask(row)
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	query := `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE ($1 = '' OR employee_id = $1)
	  AND ($2 = '' OR company_id = $2)
	  AND ($3 = '' OR state = $3)
	  AND ($4 = '' OR recurrence_id = $4)
	ORDER BY start_at DESC, id DESC
	LIMIT $5 OFFSET $6
	`
	rows, err := r.pool.Query(ctx, query,
		filter.EmployeeID,
		filter.CompanyID,
		string(filter.State),
		filter.RecurrenceID,
		clampLimit(filter.Limit),
		filter.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO tasks (
		id, kind, subject_id, subject_name, employee_id, resource_id, company_id, calendar_id,
		start_at, end_at, allocated_hours, allocated_percentage, working_days,
		state, force_recompute, recurrence_id, leave_warning
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	RETURNING created_at, updated_at
	`

	if err := r.pool.QueryRow(ctx, query, taskArgs(task)...).Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}
	return task, nil
}

func (r *taskRepository) BulkCreate(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	const query = `
	INSERT INTO tasks (
		id, kind, subject_id, subject_name, employee_id, resource_id, company_id, calendar_id,
		start_at, end_at, allocated_hours, allocated_percentage, working_days,
		state, force_recompute, recurrence_id, leave_warning
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	for _, task := range tasks {
		if task.ID == "" {
			task.ID = uuid.NewString()
		}
		batch.Queue(query, taskArgs(task)...)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range tasks {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE tasks
	SET kind = $2,
		subject_id = $3,
		subject_name = $4,
		employee_id = $5,
		resource_id = $6,
		company_id = $7,
		calendar_id = $8,
		start_at = $9,
		end_at = $10,
		allocated_hours = $11,
		allocated_percentage = $12,
		working_days = $13,
		state = $14,
		force_recompute = $15,
		recurrence_id = $16,
		leave_warning = $17,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`

	if err := r.pool.QueryRow(ctx, query, taskArgs(task)...).Scan(&task.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTaskNotFound
		}
		return err
	}
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) LatestByRecurrence(ctx context.Context, recurrenceID string) (*domain.Task, error) {
	query := `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE recurrence_id = $1
	ORDER BY start_at DESC, id DESC
	LIMIT 1
	`
	task, err := scanTask(r.pool.QueryRow(ctx, query, recurrenceID))
	if errors.Is(err, domain.ErrTaskNotFound) {
		return nil, nil
	}
	return task, err
}

func (r *taskRepository) EarliestByRecurrence(ctx context.Context, recurrenceID string) (*domain.Task, error) {
	query := `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE recurrence_id = $1
	ORDER BY end_at ASC, id ASC
	LIMIT 1
	`
	task, err := scanTask(r.pool.QueryRow(ctx, query, recurrenceID))
	if errors.Is(err, domain.ErrTaskNotFound) {
		return nil, nil
	}
	return task, err
}

func (r *taskRepository) DeletePlannedFrom(ctx context.Context, recurrenceID string, from time.Time) (int, error) {
	const query = `
	DELETE FROM tasks
	WHERE recurrence_id = $1
	  AND start_at >= $2
	  AND state = $3
	`
	tag, err := r.pool.Exec(ctx, query, recurrenceID, from, string(domain.StatePlanned))
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *taskRepository) CountBySubject(ctx context.Context, subject domain.SubjectRef) (int, error) {
	const query = `SELECT COUNT(*) FROM tasks WHERE kind = $1 AND subject_id = $2`
	var count int
	err := r.pool.QueryRow(ctx, query, string(subject.Kind), subject.ID).Scan(&count)
	return count, err
}

func (r *taskRepository) CountOverlapping(ctx context.Context, task *domain.Task) (int, error) {
	const query = `
	SELECT COUNT(*)
	FROM tasks
	WHERE employee_id = $1
	  AND start_at < $2
	  AND end_at > $3
	  AND id != $4
	`
	var count int
	err := r.pool.QueryRow(ctx, query, task.EmployeeID, task.EndAt, task.StartAt, task.ID).Scan(&count)
	return count, err
}

func (r *taskRepository) FinishElapsed(ctx context.Context, now time.Time) ([]string, error) {
	const query = `
	UPDATE tasks
	SET state = $1, updated_at = NOW()
	WHERE state = $2 AND end_at < $3
	RETURNING id
	`
	return collectIDs(r.pool.Query(ctx, query, string(domain.StateFinished), string(domain.StateInProgress), now))
}

func (r *taskRepository) StartDue(ctx context.Context, now time.Time) ([]string, error) {
	const query = `
	UPDATE tasks
	SET state = $1, updated_at = NOW()
	WHERE state = $2 AND start_at <= $3
	RETURNING id
	`
	return collectIDs(r.pool.Query(ctx, query, string(domain.StateInProgress), string(domain.StatePlanned), now))
}

func taskArgs(task *domain.Task) []interface{} {
	return []interface{}{
		task.ID,
		string(task.Subject.Kind),
		task.Subject.ID,
		task.Subject.Name,
		task.EmployeeID,
		task.ResourceID,
		task.CompanyID,
		task.CalendarID,
		task.StartAt,
		task.EndAt,
		task.AllocatedHours,
		task.AllocatedPercentage,
		task.WorkingDays,
		string(task.State),
		task.ForceRecompute,
		task.RecurrenceID,
		task.LeaveWarning,
	}
}

func scanTask(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Task, error) {
	var task domain.Task
	var kind, state string

	if err := row.Scan(
		&task.ID,
		&kind,
		&task.Subject.ID,
		&task.Subject.Name,
		&task.EmployeeID,
		&task.ResourceID,
		&task.CompanyID,
		&task.CalendarID,
		&task.StartAt,
		&task.EndAt,
		&task.AllocatedHours,
		&task.AllocatedPercentage,
		&task.WorkingDays,
		&state,
		&task.ForceRecompute,
		&task.RecurrenceID,
		&task.LeaveWarning,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.Subject.Kind = domain.TaskKind(kind)
	task.State = domain.TaskState(state)
	return &task, nil
}
