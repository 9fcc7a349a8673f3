package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/planhr/backend/domain"
)

type RecurrenceRepository struct {
	mu          sync.RWMutex
	recurrences map[string]domain.Recurrence
}

func NewRecurrenceRepository() *RecurrenceRepository {
	return &RecurrenceRepository{recurrences: make(map[string]domain.Recurrence)}
}

func (r *RecurrenceRepository) GetByID(_ context.Context, id string) (*domain.Recurrence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.recurrences[id]
	if !ok {
		return nil, domain.ErrRecurrenceNotFound
	}
	return &rec, nil
}

func (r *RecurrenceRepository) Create(_ context.Context, rec *domain.Recurrence) (*domain.Recurrence, error) {
	if rec == nil {
		return nil, domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	r.recurrences[rec.ID] = *rec
	return rec, nil
}

func (r *RecurrenceRepository) Update(_ context.Context, rec *domain.Recurrence) error {
	if rec == nil {
		return domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.recurrences[rec.ID]; !ok {
		return domain.ErrRecurrenceNotFound
	}
	rec.UpdatedAt = time.Now().UTC()
	r.recurrences[rec.ID] = *rec
	return nil
}

func (r *RecurrenceRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.recurrences[id]; !ok {
		return domain.ErrRecurrenceNotFound
	}
	delete(r.recurrences, id)
	return nil
}

func (r *RecurrenceRepository) ListDue(_ context.Context, companyID string, horizon, cutoff time.Time) ([]domain.Recurrence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []domain.Recurrence
	for _, rec := range r.recurrences {
		if rec.CompanyID != companyID {
			continue
		}
		if rec.LastGeneratedStart != nil && !rec.LastGeneratedStart.Before(horizon) {
			continue
		}
		if rec.End.Type == domain.EndUntil && !rec.End.Until.After(cutoff) {
			continue
		}
		due = append(due, rec)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due, nil
}
