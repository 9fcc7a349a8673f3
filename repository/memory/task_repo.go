// Package memory provides map-backed implementations of the repository
// contracts. They back the test suites and the local development mode; the
// production wiring uses the postgres and redis implementations.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/planhr/backend/domain"
	"github.com/planhr/backend/repository"
)

type TaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]domain.Task
}

func NewTaskRepository() *TaskRepository {
	return &TaskRepository{tasks: make(map[string]domain.Task)}
}

func (r *TaskRepository) GetByID(_ context.Context, id string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return &task, nil
}

func (r *TaskRepository) List(_ context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Task
	for _, task := range r.tasks {
		if filter.EmployeeID != "" && task.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.CompanyID != "" && task.CompanyID != filter.CompanyID {
			continue
		}
		if filter.State != "" && task.State != filter.State {
			continue
		}
		if filter.RecurrenceID != "" && task.RecurrenceID != filter.RecurrenceID {
			continue
		}
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartAt.Equal(out[j].StartAt) {
			return out[i].StartAt.Before(out[j].StartAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *TaskRepository) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	r.tasks[task.ID] = *task
	return task, nil
}

func (r *TaskRepository) BulkCreate(ctx context.Context, tasks []*domain.Task) error {
	for _, task := range tasks {
		if _, err := r.Create(ctx, task); err != nil {
			return err
		}
	}
	return nil
}

func (r *TaskRepository) Update(_ context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[task.ID]; !ok {
		return domain.ErrTaskNotFound
	}
	task.UpdatedAt = time.Now().UTC()
	r.tasks[task.ID] = *task
	return nil
}

func (r *TaskRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *TaskRepository) LatestByRecurrence(_ context.Context, recurrenceID string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *domain.Task
	for id := range r.tasks {
		task := r.tasks[id]
		if task.RecurrenceID != recurrenceID {
			continue
		}
		if latest == nil || task.StartAt.After(latest.StartAt) {
			t := task
			latest = &t
		}
	}
	return latest, nil
}

func (r *TaskRepository) EarliestByRecurrence(_ context.Context, recurrenceID string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var earliest *domain.Task
	for id := range r.tasks {
		task := r.tasks[id]
		if task.RecurrenceID != recurrenceID {
			continue
		}
		if earliest == nil || task.EndAt.Before(earliest.EndAt) {
			t := task
			earliest = &t
		}
	}
	return earliest, nil
}

func (r *TaskRepository) DeletePlannedFrom(_ context.Context, recurrenceID string, from time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int
	for id, task := range r.tasks {
		if task.RecurrenceID == recurrenceID && task.State == domain.StatePlanned && !task.StartAt.Before(from) {
			delete(r.tasks, id)
			removed++
		}
	}
	return removed, nil
}

func (r *TaskRepository) CountBySubject(_ context.Context, subject domain.SubjectRef) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int
	for _, task := range r.tasks {
		if task.Subject.Kind == subject.Kind && task.Subject.ID == subject.ID {
			count++
		}
	}
	return count, nil
}

func (r *TaskRepository) CountOverlapping(_ context.Context, task *domain.Task) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int
	for _, other := range r.tasks {
		if other.ID == task.ID || other.EmployeeID != task.EmployeeID {
			continue
		}
		if other.StartAt.Before(task.EndAt) && other.EndAt.After(task.StartAt) {
			count++
		}
	}
	return count, nil
}

func (r *TaskRepository) FinishElapsed(_ context.Context, now time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, task := range r.tasks {
		if task.State == domain.StateInProgress && task.EndAt.Before(now) {
			task.State = domain.StateFinished
			task.UpdatedAt = now
			r.tasks[id] = task
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *TaskRepository) StartDue(_ context.Context, now time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, task := range r.tasks {
		if task.State == domain.StatePlanned && !task.StartAt.After(now) {
			task.State = domain.StateInProgress
			task.UpdatedAt = now
			r.tasks[id] = task
			ids = append(ids, id)
		}
	}
	return ids, nil
}
