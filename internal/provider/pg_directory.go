package provider

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adhealth/clinic-scheduling/internal/schedule"
)

// PgDirectory reads provider records from Postgres.
type PgDirectory struct {
	pool *pgxpool.Pool
}

func NewPgDirectory(pool *pgxpool.Pool) *PgDirectory {
	return &PgDirectory{pool: pool}
}

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	var days []string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Specialty,
		&p.Email,
		&p.ImageURL,
		&p.Experience,
		&p.Description,
		&days,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}

	p.Availability = make([]schedule.Weekday, 0, len(days))
	for _, d := range days {
		day, err := schedule.ParseWeekday(d)
		if err != nil {
			return nil, err
		}
		p.Availability = append(p.Availability, day)
	}
	return &p, nil
}

func (d *PgDirectory) GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT id, name, specialty, email, image_url, experience_years, description, availability, created_at, updated_at
		FROM providers
		WHERE id = $1
	`, id)
	return scanProvider(row)
}

func (d *PgDirectory) ListProviders(ctx context.Context) ([]Provider, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, name, specialty, email, image_url, experience_years, description, availability, created_at, updated_at
		FROM providers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
