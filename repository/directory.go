package repository

import (
	"context"

	"github.com/planhr/backend/domain"
)

// EmployeeRepository resolves the people tasks are assigned to.
type EmployeeRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Employee, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Employee, error)
	ListByIDs(ctx context.Context, ids []string) (map[string]*domain.Employee, error)
}

// CompanyRepository resolves tenants and their planning configuration.
type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Company, error)
	List(ctx context.Context) ([]domain.Company, error)
}

// CalendarRepository resolves calendar attributes (timezone, hours per
// day); the working-time math itself goes through CalendarService.
type CalendarRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Calendar, error)
}
