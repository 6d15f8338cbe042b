package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/staff-service/internal/domain"
)

const approvalColumns = `id, kind, target_id, requested_by, reason, report_id, strikes, punishment,
                         status, reviewer_id, reviewed_at, message_ref, created_at`

type approvalRepository struct {
	pool *pgxpool.Pool
}

// NewApprovalRepository returns a pgx backed implementation.
func NewApprovalRepository(pool *pgxpool.Pool) ApprovalRepository {
	return &approvalRepository{pool: pool}
}

func (r *approvalRepository) Create(ctx context.Context, req *domain.ApprovalRequest) error {
	strikes := req.Strikes
	if strikes == nil {
		strikes = []domain.Note{}
	}
	const query = `
        INSERT INTO approval_requests (kind, target_id, requested_by, reason, report_id, strikes, punishment, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,'pending')
        RETURNING id, status, created_at`
	err := r.pool.QueryRow(ctx, query,
		req.Kind,
		req.TargetID,
		req.RequestedBy,
		req.Reason,
		req.ReportID,
		strikes,
		req.Punishment,
	).Scan(&req.ID, &req.Status, &req.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicatePending
	}
	return err
}

func (r *approvalRepository) GetByID(ctx context.Context, id string) (*domain.ApprovalRequest, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	query := `SELECT ` + approvalColumns + ` FROM approval_requests WHERE id=$1`
	return scanApproval(r.pool.QueryRow(ctx, query, id))
}

func (r *approvalRepository) FindPending(ctx context.Context, kind domain.RequestKind, targetID string) (*domain.ApprovalRequest, error) {
	query := `SELECT ` + approvalColumns + `
        FROM approval_requests
        WHERE kind=$1 AND target_id=$2 AND status='pending'
        ORDER BY created_at LIMIT 1`
	return scanApproval(r.pool.QueryRow(ctx, query, kind, targetID))
}

func (r *approvalRepository) List(ctx context.Context, filter ApprovalFilter) ([]domain.ApprovalRequest, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Kind != nil {
		args = append(args, *filter.Kind)
		clauses = append(clauses, fmt.Sprintf("kind=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}

	limit, offset := page(filter.Limit, filter.Offset, 50)
	query := fmt.Sprintf(`SELECT %s FROM approval_requests WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		approvalColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ApprovalRequest
	for rows.Next() {
		req, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

// Claim is the single pending to terminal transition. Only one caller can win it.
func (r *approvalRepository) Claim(ctx context.Context, id string, status domain.RequestStatus, reviewerID string, at time.Time) (*domain.ApprovalRequest, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	query := `
        UPDATE approval_requests
        SET status=$2, reviewer_id=$3, reviewed_at=$4
        WHERE id=$1 AND status='pending'
        RETURNING ` + approvalColumns
	req, err := scanApproval(r.pool.QueryRow(ctx, query, id, status, reviewerID, at))
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrStateConflict
}

func (r *approvalRepository) SetMessageRef(ctx context.Context, id, ref string) error {
	if !validID(id) {
		return ErrNotFound
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE approval_requests SET message_ref=$2 WHERE id=$1`, id, ref)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanApproval(row pgx.Row) (*domain.ApprovalRequest, error) {
	var req domain.ApprovalRequest
	if err := row.Scan(
		&req.ID,
		&req.Kind,
		&req.TargetID,
		&req.RequestedBy,
		&req.Reason,
		&req.ReportID,
		&req.Strikes,
		&req.Punishment,
		&req.Status,
		&req.ReviewerID,
		&req.ReviewedAt,
		&req.MessageRef,
		&req.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &req, nil
}
