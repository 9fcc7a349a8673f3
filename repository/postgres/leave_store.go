package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/planhr/backend/domain"
	"github.com/planhr/backend/repository"
)

const leaveColumns = `
	id, source, start_at, end_at, validated, days,
	employee_id, company_id, resource_id, calendar_id
`

type leaveStore struct {
	pool *pgxpool.Pool
}

// NewLeaveStore returns a read-only Postgres view onto the leave tables
// maintained by the leave-management subsystem.
func NewLeaveStore(pool *pgxpool.Pool) repository.LeaveStore {
	return &leaveStore{pool: pool}
}

func (s *leaveStore) RequestsOverlapping(ctx context.Context, employeeIDs []string, from, to time.Time) ([]domain.Leave, error) {
	query := `
	SELECT ` + leaveColumns + `
	FROM leaves
	WHERE source = 'request'
	  AND employee_id = ANY($1)
	  AND start_at <= $2
	  AND end_at >= $3
	ORDER BY start_at ASC
	`
	return s.query(ctx, query, employeeIDs, to, from)
}

func (s *leaveStore) ClosuresOverlapping(ctx context.Context, from, to time.Time) ([]domain.Leave, error) {
	query := `
	SELECT ` + leaveColumns + `
	FROM leaves
	WHERE source = 'closure'
	  AND start_at <= $1
	  AND end_at >= $2
	ORDER BY start_at ASC
	`
	return s.query(ctx, query, to, from)
}

func (s *leaveStore) query(ctx context.Context, query string, args ...interface{}) ([]domain.Leave, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Leave
	for rows.Next() {
		leave, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *leave)
	}
	return out, rows.Err()
}

func scanLeave(rows pgx.Rows) (*domain.Leave, error) {
	var l domain.Leave
	var source string
	if err := rows.Scan(
		&l.ID,
		&source,
		&l.StartAt,
		&l.EndAt,
		&l.Validated,
		&l.Days,
		&l.EmployeeID,
		&l.CompanyID,
		&l.ResourceID,
		&l.CalendarID,
	); err != nil {
		return nil, err
	}
	l.Source = domain.LeaveSource(source)
	return &l, nil
}
