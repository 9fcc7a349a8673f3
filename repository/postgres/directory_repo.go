package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/planhr/backend/domain"
	"github.com/planhr/backend/repository"
)

type employeeRepository struct {
	pool *pgxpool.Pool
}

// NewEmployeeRepository returns a Postgres-backed implementation of EmployeeRepository.
func NewEmployeeRepository(pool *pgxpool.Pool) repository.EmployeeRepository {
	return &employeeRepository{pool: pool}
}

const employeeColumns = `id, name, user_id, resource_id, company_id, calendar_id, timezone`

func (r *employeeRepository) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`
	return scanEmployee(r.pool.QueryRow(ctx, query, id))
}

func (r *employeeRepository) GetByUserID(ctx context.Context, userID string) (*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE user_id = $1 LIMIT 1`
	return scanEmployee(r.pool.QueryRow(ctx, query, userID))
}

func (r *employeeRepository) ListByIDs(ctx context.Context, ids []string) (map[string]*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*domain.Employee, len(ids))
	for rows.Next() {
		employee, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out[employee.ID] = employee
	}
	return out, rows.Err()
}

func scanEmployee(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Employee, error) {
	var e domain.Employee
	if err := row.Scan(&e.ID, &e.Name, &e.UserID, &e.ResourceID, &e.CompanyID, &e.CalendarID, &e.Timezone); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEmployeeNotFound
		}
		return nil, err
	}
	return &e, nil
}

type companyRepository struct {
	pool *pgxpool.Pool
}

// NewCompanyRepository returns a Postgres-backed implementation of CompanyRepository.
func NewCompanyRepository(pool *pgxpool.Pool) repository.CompanyRepository {
	return &companyRepository{pool: pool}
}

func (r *companyRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	const query = `SELECT id, name, calendar_id, generation_months FROM companies WHERE id = $1`
	var c domain.Company
	if err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.CalendarID, &c.GenerationMonths); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCompanyNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *companyRepository) List(ctx context.Context) ([]domain.Company, error) {
	const query = `SELECT id, name, calendar_id, generation_months FROM companies ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Company
	for rows.Next() {
		var c domain.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.CalendarID, &c.GenerationMonths); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type calendarRepository struct {
	pool *pgxpool.Pool
}

// NewCalendarRepository returns a Postgres-backed implementation of CalendarRepository.
func NewCalendarRepository(pool *pgxpool.Pool) repository.CalendarRepository {
	return &calendarRepository{pool: pool}
}

func (r *calendarRepository) GetByID(ctx context.Context, id string) (*domain.Calendar, error) {
	const query = `SELECT id, name, timezone, hours_per_day FROM calendars WHERE id = $1`
	var c domain.Calendar
	if err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Timezone, &c.HoursPerDay); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewErrorf(domain.ErrCodeNotFound, "calendar %s not found", id)
		}
		return nil, err
	}
	return &c, nil
}
