package repository

import (
	"context"
	"time"

	"github.com/planhr/backend/domain"
)

// LeaveStore is the read-only view onto the leave-management subsystem.
type LeaveStore interface {
	// RequestsOverlapping returns pending and approved leave requests of
	// the employees that intersect [from, to], ordered by start.
	RequestsOverlapping(ctx context.Context, employeeIDs []string, from, to time.Time) ([]domain.Leave, error)

	// ClosuresOverlapping returns calendar-level closures that intersect
	// [from, to], ordered by start. Scope filtering against a concrete
	// employee happens in the caller.
	ClosuresOverlapping(ctx context.Context, from, to time.Time) ([]domain.Leave, error)
}
