package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/staff-service/internal/domain"
)

const applicationTypeColumns = `id, name, description, kind, questions, active, created_at, updated_at`

type applicationTypeRepository struct {
	pool *pgxpool.Pool
}

// NewApplicationTypeRepository returns a pgx backed implementation.
func NewApplicationTypeRepository(pool *pgxpool.Pool) ApplicationTypeRepository {
	return &applicationTypeRepository{pool: pool}
}

func (r *applicationTypeRepository) Create(ctx context.Context, appType *domain.ApplicationType) error {
	const query = `
        INSERT INTO application_types (name, description, kind, questions, active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		appType.Name,
		appType.Description,
		appType.Kind,
		appType.Questions,
		appType.Active,
	).Scan(&appType.ID, &appType.CreatedAt, &appType.UpdatedAt)
}

func (r *applicationTypeRepository) Update(ctx context.Context, appType *domain.ApplicationType) error {
	if !validID(appType.ID) {
		return ErrNotFound
	}
	const query = `
        UPDATE application_types
        SET name=$1, description=$2, kind=$3, questions=$4, active=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		appType.Name,
		appType.Description,
		appType.Kind,
		appType.Questions,
		appType.Active,
		appType.ID,
	).Scan(&appType.CreatedAt, &appType.UpdatedAt)
}

func (r *applicationTypeRepository) GetByID(ctx context.Context, id string) (*domain.ApplicationType, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	query := `SELECT ` + applicationTypeColumns + ` FROM application_types WHERE id=$1`
	return scanApplicationType(r.pool.QueryRow(ctx, query, id))
}

func (r *applicationTypeRepository) List(ctx context.Context, includeInactive bool) ([]domain.ApplicationType, error) {
	query := `SELECT ` + applicationTypeColumns + ` FROM application_types`
	if !includeInactive {
		query += ` WHERE active=TRUE`
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ApplicationType
	for rows.Next() {
		appType, err := scanApplicationType(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *appType)
	}
	return result, rows.Err()
}

func (r *applicationTypeRepository) Deactivate(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE application_types SET active=FALSE, updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanApplicationType(row pgx.Row) (*domain.ApplicationType, error) {
	var appType domain.ApplicationType
	if err := row.Scan(
		&appType.ID,
		&appType.Name,
		&appType.Description,
		&appType.Kind,
		&appType.Questions,
		&appType.Active,
		&appType.CreatedAt,
		&appType.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &appType, nil
}
