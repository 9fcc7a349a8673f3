package repository

import (
	"context"
	"time"

	"github.com/planhr/backend/domain"
)

type TaskFilter struct {
	EmployeeID   string
	CompanyID    string
	State        domain.TaskState
	RecurrenceID string
	Limit        int
	Offset       int
}

type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	// BulkCreate persists a generated batch in one round trip.
	BulkCreate(ctx context.Context, tasks []*domain.Task) error
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id string) error

	// LatestByRecurrence returns the instance with the greatest start, the
	// series template. Nil when the series is empty.
	LatestByRecurrence(ctx context.Context, recurrenceID string) (*domain.Task, error)
	// EarliestByRecurrence returns the instance with the smallest end, the
	// anchor for count-bounded horizons. Nil when the series is empty.
	EarliestByRecurrence(ctx context.Context, recurrenceID string) (*domain.Task, error)
	// DeletePlannedFrom removes still-planned instances starting at or
	// after from. Instances past planned are never touched.
	DeletePlannedFrom(ctx context.Context, recurrenceID string, from time.Time) (int, error)

	CountBySubject(ctx context.Context, subject domain.SubjectRef) (int, error)
	CountOverlapping(ctx context.Context, task *domain.Task) (int, error)

	// FinishElapsed moves in-progress tasks whose window has closed to
	// finished; StartDue moves planned tasks whose window has opened to
	// in progress. Both return the affected ids and are idempotent.
	FinishElapsed(ctx context.Context, now time.Time) ([]string, error)
	StartDue(ctx context.Context, now time.Time) ([]string, error)
}
