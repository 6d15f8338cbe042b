package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/staff-service/internal/domain"
)

const teamColumns = `id, name, description, head_admin_id, members, created_at, updated_at`

type teamRepository struct {
	pool *pgxpool.Pool
}

// NewTeamRepository constructs repository.
func NewTeamRepository(pool *pgxpool.Pool) TeamRepository {
	return &teamRepository{pool: pool}
}

func (r *teamRepository) Create(ctx context.Context, team *domain.Team) error {
	const query = `
        INSERT INTO teams (name, description, head_admin_id)
        VALUES ($1,$2,$3)
        RETURNING id, members, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		team.Name,
		team.Description,
		team.HeadAdminID,
	).Scan(&team.ID, &team.Members, &team.CreatedAt, &team.UpdatedAt)
}

// Update changes the descriptive fields and head admin. The roster is owned by the account
// repository and never written here.
func (r *teamRepository) Update(ctx context.Context, team *domain.Team) error {
	if !validID(team.ID) {
		return ErrNotFound
	}
	const query = `
        UPDATE teams SET name=$1, description=$2, head_admin_id=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING members, updated_at`
	return r.pool.QueryRow(ctx, query,
		team.Name,
		team.Description,
		team.HeadAdminID,
		team.ID,
	).Scan(&team.Members, &team.UpdatedAt)
}

func (r *teamRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id=$1`
	return scanTeam(r.pool.QueryRow(ctx, query, id))
}

func (r *teamRepository) GetByHeadAdmin(ctx context.Context, accountID string) (*domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE head_admin_id=$1 ORDER BY created_at, id LIMIT 1`
	return scanTeam(r.pool.QueryRow(ctx, query, accountID))
}

func (r *teamRepository) List(ctx context.Context) ([]domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *team)
	}
	return result, rows.Err()
}

func (r *teamRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE accounts SET team_id=NULL, updated_at=NOW() WHERE team_id=$1`, id); err != nil {
			return err
		}
		cmd, err := tx.Exec(ctx, `DELETE FROM teams WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func scanTeam(row pgx.Row) (*domain.Team, error) {
	var team domain.Team
	if err := row.Scan(
		&team.ID,
		&team.Name,
		&team.Description,
		&team.HeadAdminID,
		&team.Members,
		&team.CreatedAt,
		&team.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &team, nil
}
