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

const recurrenceColumns = `
	id, repeat_interval, repeat_unit, end_type, end_until, end_count,
	company_id, last_generated_start, created_at, updated_at
`

type recurrenceRepository struct {
	pool *pgxpool.Pool
}

// NewRecurrenceRepository returns a Postgres-backed implementation of RecurrenceRepository.
func NewRecurrenceRepository(pool *pgxpool.Pool) repository.RecurrenceRepository {
	return &recurrenceRepository{pool: pool}
}

func (r *recurrenceRepository) GetByID(ctx context.Context, id string) (*domain.Recurrence, error) {
	query := `SELECT ` + recurrenceColumns + ` FROM recurrences WHERE id = $1`
	return scanRecurrence(r.pool.QueryRow(ctx, query, id))
}

func (r *recurrenceRepository) Create(ctx context.Context, rec *domain.Recurrence) (*domain.Recurrence, error) {
	if rec == nil {
		return nil, domain.ErrInvalidPayload
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO recurrences (
		id, repeat_interval, repeat_unit, end_type, end_until, end_count,
		company_id, last_generated_start
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING created_at, updated_at
	`

	if err := r.pool.QueryRow(ctx, query, recurrenceArgs(rec)...).Scan(&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *recurrenceRepository) Update(ctx context.Context, rec *domain.Recurrence) error {
	if rec == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE recurrences
	SET repeat_interval = $2,
		repeat_unit = $3,
		end_type = $4,
		end_until = $5,
		end_count = $6,
		company_id = $7,
		last_generated_start = $8,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`

	if err := r.pool.QueryRow(ctx, query, recurrenceArgs(rec)...).Scan(&rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrRecurrenceNotFound
		}
		return err
	}
	return nil
}

func (r *recurrenceRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM recurrences WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecurrenceNotFound
	}
	return nil
}

func (r *recurrenceRepository) ListDue(ctx context.Context, companyID string, horizon, cutoff time.Time) ([]domain.Recurrence, error) {
	query := `
	SELECT ` + recurrenceColumns + `
	FROM recurrences
	WHERE company_id = $1
	  AND (last_generated_start IS NULL OR last_generated_start < $2)
	  AND (end_type != 'until' OR end_until > $3)
	ORDER BY created_at ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, companyID, horizon, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Recurrence
	for rows.Next() {
		rec, err := scanRecurrence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func recurrenceArgs(rec *domain.Recurrence) []interface{} {
	var until interface{}
	if !rec.End.Until.IsZero() {
		until = rec.End.Until
	}
	var last interface{}
	if rec.LastGeneratedStart != nil {
		last = *rec.LastGeneratedStart
	}
	return []interface{}{
		rec.ID,
		rec.Interval,
		string(rec.Unit),
		string(rec.End.Type),
		until,
		rec.End.Count,
		rec.CompanyID,
		last,
	}
}

func scanRecurrence(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Recurrence, error) {
	var rec domain.Recurrence
	var (
		unit    string
		endType string
		until   *time.Time
		last    *time.Time
	)

	if err := row.Scan(
		&rec.ID,
		&rec.Interval,
		&unit,
		&endType,
		&until,
		&rec.End.Count,
		&rec.CompanyID,
		&last,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecurrenceNotFound
		}
		return nil, err
	}

	rec.Unit = domain.RepeatUnit(unit)
	rec.End.Type = domain.EndPolicyType(endType)
	if until != nil {
		rec.End.Until = *until
	}
	rec.LastGeneratedStart = last
	return &rec, nil
}
