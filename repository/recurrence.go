package repository

import (
	"context"
	"time"

	"github.com/planhr/backend/domain"
)

type RecurrenceRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Recurrence, error)
	Create(ctx context.Context, rec *domain.Recurrence) (*domain.Recurrence, error)
	Update(ctx context.Context, rec *domain.Recurrence) error
	Delete(ctx context.Context, id string) error

	// ListDue returns the company's recurrences whose high-water mark is
	// behind horizon and whose end boundary, if dated, is after cutoff.
	// These are the rules the horizon sweep must reconcile.
	ListDue(ctx context.Context, companyID string, horizon, cutoff time.Time) ([]domain.Recurrence, error)
}
