package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/repository"
)

type reportRepo struct{ s *Store }

func (r *reportRepo) Create(_ context.Context, report *domain.Report) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.stamp()
	report.ID = uuid.NewString()
	report.Status = domain.ReportStatusPending
	report.CreatedAt = now
	report.UpdatedAt = now
	s.reports[report.ID] = cloneReport(report)
	return nil
}

func (r *reportRepo) GetByID(_ context.Context, id string) (*domain.Report, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneReport(report), nil
}

func (r *reportRepo) List(_ context.Context, filter repository.ReportFilter) ([]domain.Report, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.Report
	for _, report := range s.reports {
		if filter.ReporterID != nil && report.ReporterID != *filter.ReporterID {
			continue
		}
		if filter.Status != nil && report.Status != *filter.Status {
			continue
		}
		result = append(result, *cloneReport(report))
	}
	sortByTime(result, func(r domain.Report) time.Time { return r.CreatedAt }, true)
	return page(result, filter.Limit, filter.Offset, 50), nil
}

func (r *reportRepo) Update(_ context.Context, id string, update repository.ReportUpdate) (*domain.Report, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if update.Status != nil {
		report.Status = *update.Status
	}
	if update.AdminNotes != nil {
		report.AdminNotes = *update.AdminNotes
	}
	if update.Punishment != nil {
		report.Punishment = clonePunishment(update.Punishment)
	}
	report.HandledBy = strPtr(update.HandledBy)
	report.HandledAt = timePtr(update.HandledAt)
	report.UpdatedAt = s.stamp()
	return cloneReport(report), nil
}

func (r *reportRepo) SetPunishmentStatus(_ context.Context, id string, status domain.RequestStatus) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok || report.Punishment == nil {
		return repository.ErrNotFound
	}
	report.Punishment.Status = status
	report.UpdatedAt = s.stamp()
	return nil
}

func cloneReport(r *domain.Report) *domain.Report {
	out := *r
	out.Evidence = cloneString(r.Evidence)
	out.Punishment = clonePunishment(r.Punishment)
	out.HandledBy = cloneString(r.HandledBy)
	out.HandledAt = cloneTime(r.HandledAt)
	return &out
}
