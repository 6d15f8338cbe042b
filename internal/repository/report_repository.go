package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/staff-service/internal/domain"
)

const reportColumns = `id, reporter_id, reporter_name, reported_player, category, description, evidence,
                       status, punishment, handled_by, handled_at, admin_notes, created_at, updated_at`

type reportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository returns a pgx backed implementation.
func NewReportRepository(pool *pgxpool.Pool) ReportRepository {
	return &reportRepository{pool: pool}
}

func (r *reportRepository) Create(ctx context.Context, report *domain.Report) error {
	const query = `
        INSERT INTO reports (reporter_id, reporter_name, reported_player, category, description, evidence, status)
        VALUES ($1,$2,$3,$4,$5,$6,'pending')
        RETURNING id, status, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		report.ReporterID,
		report.ReporterName,
		report.ReportedPlayer,
		report.Category,
		report.Description,
		report.Evidence,
	).Scan(&report.ID, &report.Status, &report.CreatedAt, &report.UpdatedAt)
}

func (r *reportRepository) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id=$1`
	return scanReport(r.pool.QueryRow(ctx, query, id))
}

func (r *reportRepository) List(ctx context.Context, filter ReportFilter) ([]domain.Report, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ReporterID != nil {
		args = append(args, *filter.ReporterID)
		clauses = append(clauses, fmt.Sprintf("reporter_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}

	limit, offset := page(filter.Limit, filter.Offset, 50)
	query := fmt.Sprintf(`SELECT %s FROM reports WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		reportColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *report)
	}
	return result, rows.Err()
}

// Update applies the admin decision as one statement; nil fields keep their stored value.
func (r *reportRepository) Update(ctx context.Context, id string, update ReportUpdate) (*domain.Report, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	query := `
        UPDATE reports
        SET status=COALESCE($2, status),
            admin_notes=COALESCE($3, admin_notes),
            punishment=COALESCE($4::jsonb, punishment),
            handled_by=$5, handled_at=$6, updated_at=NOW()
        WHERE id=$1
        RETURNING ` + reportColumns
	return scanReport(r.pool.QueryRow(ctx, query,
		id,
		update.Status,
		update.AdminNotes,
		update.Punishment,
		update.HandledBy,
		update.HandledAt,
	))
}

func (r *reportRepository) SetPunishmentStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	if !validID(id) {
		return ErrNotFound
	}
	const query = `
        UPDATE reports
        SET punishment=jsonb_set(punishment, '{status}', to_jsonb($2::text)), updated_at=NOW()
        WHERE id=$1 AND punishment IS NOT NULL`
	cmd, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanReport(row pgx.Row) (*domain.Report, error) {
	var report domain.Report
	if err := row.Scan(
		&report.ID,
		&report.ReporterID,
		&report.ReporterName,
		&report.ReportedPlayer,
		&report.Category,
		&report.Description,
		&report.Evidence,
		&report.Status,
		&report.Punishment,
		&report.HandledBy,
		&report.HandledAt,
		&report.AdminNotes,
		&report.CreatedAt,
		&report.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &report, nil
}
