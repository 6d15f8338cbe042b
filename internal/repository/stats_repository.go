package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/staff-service/internal/domain"
)

type statsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository returns a pgx backed implementation.
func NewStatsRepository(pool *pgxpool.Pool) StatsRepository {
	return &statsRepository{pool: pool}
}

func (r *statsRepository) Stats(ctx context.Context) (*domain.Stats, error) {
	const query = `
        SELECT
            (SELECT COUNT(*) FROM accounts),
            (SELECT COUNT(*) FROM teams),
            (SELECT COUNT(*) FROM applications WHERE status='pending'),
            (SELECT COUNT(*) FROM accounts WHERE staff_status='staff_member'),
            (SELECT COUNT(*) FROM reports WHERE status='pending'),
            (SELECT COUNT(*) FROM approval_requests WHERE status='pending'),
            (SELECT COUNT(*) FROM accounts WHERE probation)`
	var stats domain.Stats
	if err := r.pool.QueryRow(ctx, query).Scan(
		&stats.TotalUsers,
		&stats.TotalTeams,
		&stats.PendingApplications,
		&stats.StaffCount,
		&stats.PendingReports,
		&stats.PendingApprovals,
		&stats.OnProbation,
	); err != nil {
		return nil, err
	}
	return &stats, nil
}
