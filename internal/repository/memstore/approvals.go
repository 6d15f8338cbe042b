package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/repository"
)

type approvalRepo struct{ s *Store }

func (r *approvalRepo) Create(_ context.Context, req *domain.ApprovalRequest) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.approvals {
		if existing.Status == domain.RequestStatusPending && samePendingKey(existing, req) {
			return repository.ErrDuplicatePending
		}
	}
	req.ID = uuid.NewString()
	req.Status = domain.RequestStatusPending
	req.CreatedAt = s.stamp()
	s.approvals[req.ID] = cloneApproval(req)
	return nil
}

func (r *approvalRepo) GetByID(_ context.Context, id string) (*domain.ApprovalRequest, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.approvals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneApproval(req), nil
}

func (r *approvalRepo) FindPending(_ context.Context, kind domain.RequestKind, targetID string) (*domain.ApprovalRequest, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var found *domain.ApprovalRequest
	for _, req := range s.approvals {
		if req.Kind != kind || req.TargetID != targetID || req.Status != domain.RequestStatusPending {
			continue
		}
		if found == nil || req.CreatedAt.Before(found.CreatedAt) {
			found = req
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return cloneApproval(found), nil
}

func (r *approvalRepo) List(_ context.Context, filter repository.ApprovalFilter) ([]domain.ApprovalRequest, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.ApprovalRequest
	for _, req := range s.approvals {
		if filter.Kind != nil && req.Kind != *filter.Kind {
			continue
		}
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		result = append(result, *cloneApproval(req))
	}
	sortByTime(result, func(r domain.ApprovalRequest) time.Time { return r.CreatedAt }, true)
	return page(result, filter.Limit, filter.Offset, 50), nil
}

func (r *approvalRepo) Claim(_ context.Context, id string, status domain.RequestStatus, reviewerID string, at time.Time) (*domain.ApprovalRequest, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.approvals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if req.Status != domain.RequestStatusPending {
		return nil, repository.ErrStateConflict
	}
	req.Status = status
	req.ReviewerID = strPtr(reviewerID)
	req.ReviewedAt = timePtr(at)
	return cloneApproval(req), nil
}

func (r *approvalRepo) SetMessageRef(_ context.Context, id, ref string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.approvals[id]
	if !ok {
		return repository.ErrNotFound
	}
	req.MessageRef = strPtr(ref)
	return nil
}

func cloneApproval(r *domain.ApprovalRequest) *domain.ApprovalRequest {
	out := *r
	out.ReportID = cloneString(r.ReportID)
	out.Strikes = append([]domain.Note{}, r.Strikes...)
	out.Punishment = clonePunishment(r.Punishment)
	out.ReviewerID = cloneString(r.ReviewerID)
	out.ReviewedAt = cloneTime(r.ReviewedAt)
	out.MessageRef = cloneString(r.MessageRef)
	return &out
}

type statsRepo struct{ s *Store }

func (r *statsRepo) Stats(_ context.Context) (*domain.Stats, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &domain.Stats{
		TotalUsers: int64(len(s.accounts)),
		TotalTeams: int64(len(s.teams)),
	}
	for _, account := range s.accounts {
		if account.IsStaff() {
			stats.StaffCount++
		}
		if account.Probation {
			stats.OnProbation++
		}
	}
	for _, app := range s.apps {
		if app.Status == domain.ApplicationStatusPending {
			stats.PendingApplications++
		}
	}
	for _, report := range s.reports {
		if report.Status == domain.ReportStatusPending {
			stats.PendingReports++
		}
	}
	for _, req := range s.approvals {
		if req.Status == domain.RequestStatusPending {
			stats.PendingApprovals++
		}
	}
	return stats, nil
}

// samePendingKey mirrors the partial unique indexes: one pending firing request per target
// and one pending punishment request per report.
func samePendingKey(existing, req *domain.ApprovalRequest) bool {
	if existing.Kind != req.Kind {
		return false
	}
	switch req.Kind {
	case domain.RequestKindFiring:
		return existing.TargetID == req.TargetID
	case domain.RequestKindPunishment:
		return req.ReportID != nil && existing.ReportID != nil && *existing.ReportID == *req.ReportID
	}
	return false
}
