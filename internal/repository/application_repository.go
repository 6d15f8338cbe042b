package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/staff-service/internal/domain"
)

const applicationColumns = `id, applicant_id, applicant_name, type_id, type_name, type_kind, status,
                            answers, submitted_at, reviewed_by, reviewed_at, assigned_team_id`

type applicationRepository struct {
	pool *pgxpool.Pool
}

// NewApplicationRepository returns a pgx backed implementation.
func NewApplicationRepository(pool *pgxpool.Pool) ApplicationRepository {
	return &applicationRepository{pool: pool}
}

func (r *applicationRepository) Create(ctx context.Context, app *domain.Application) error {
	const query = `
        INSERT INTO applications (applicant_id, applicant_name, type_id, type_name, type_kind, status, answers)
        VALUES ($1,$2,$3,$4,$5,'pending',$6)
        RETURNING id, status, submitted_at`
	err := r.pool.QueryRow(ctx, query,
		app.ApplicantID,
		app.ApplicantName,
		app.TypeID,
		app.TypeName,
		app.TypeKind,
		app.Answers,
	).Scan(&app.ID, &app.Status, &app.SubmittedAt)
	if isUniqueViolation(err) {
		return ErrDuplicatePending
	}
	return err
}

func (r *applicationRepository) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id=$1`
	return scanApplication(r.pool.QueryRow(ctx, query, id))
}

func (r *applicationRepository) List(ctx context.Context, filter ApplicationFilter) ([]domain.Application, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ApplicantID != nil {
		args = append(args, *filter.ApplicantID)
		clauses = append(clauses, fmt.Sprintf("applicant_id=$%d", len(args)))
	}
	if filter.TypeID != nil {
		if !validID(*filter.TypeID) {
			return nil, nil
		}
		args = append(args, *filter.TypeID)
		clauses = append(clauses, fmt.Sprintf("type_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(applicant_name) LIKE %s OR applicant_id LIKE %s)", placeholder, placeholder))
	}

	limit, offset := page(filter.Limit, filter.Offset, 50)
	query := fmt.Sprintf(`SELECT %s FROM applications WHERE %s ORDER BY submitted_at DESC LIMIT %d OFFSET %d`,
		applicationColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *app)
	}
	return result, rows.Err()
}

const reviewApplication = `
        UPDATE applications
        SET status=$2, reviewed_by=$3, reviewed_at=$4, assigned_team_id=$5
        WHERE id=$1 AND status='pending'
        RETURNING ` + applicationColumns

func (r *applicationRepository) Review(ctx context.Context, id string, review ApplicationReview) (*domain.Application, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	app, err := claimApplication(ctx, r.pool, id, review)
	if err == nil {
		return app, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return nil, r.missedReview(ctx, id)
}

func (r *applicationRepository) ApproveAndEnroll(ctx context.Context, id string, review ApplicationReview, enrollment domain.Enrollment) (*domain.Application, *domain.Account, error) {
	if !validID(id) {
		return nil, nil, ErrNotFound
	}
	review.Status = domain.ApplicationStatusApproved
	review.AssignedTeamID = enrollment.TeamID

	var (
		app     *domain.Application
		account *domain.Account
		missed  bool
	)
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		app, err = claimApplication(ctx, tx, id, review)
		if errors.Is(err, pgx.ErrNoRows) {
			missed = true
			return err
		}
		if err != nil {
			return err
		}
		account, err = enrollTx(ctx, tx, enrollment)
		return err
	})
	if missed {
		return nil, nil, r.missedReview(ctx, id)
	}
	if err != nil {
		return nil, nil, err
	}
	return app, account, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func claimApplication(ctx context.Context, q queryRower, id string, review ApplicationReview) (*domain.Application, error) {
	return scanApplication(q.QueryRow(ctx, reviewApplication,
		id,
		review.Status,
		review.ReviewerID,
		review.ReviewedAt,
		review.AssignedTeamID,
	))
}

// missedReview explains a claim that matched no row.
func (r *applicationRepository) missedReview(ctx context.Context, id string) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrStateConflict
}

func scanApplication(row pgx.Row) (*domain.Application, error) {
	var app domain.Application
	if err := row.Scan(
		&app.ID,
		&app.ApplicantID,
		&app.ApplicantName,
		&app.TypeID,
		&app.TypeName,
		&app.TypeKind,
		&app.Status,
		&app.Answers,
		&app.SubmittedAt,
		&app.ReviewedBy,
		&app.ReviewedAt,
		&app.AssignedTeamID,
	); err != nil {
		return nil, err
	}
	return &app, nil
}
