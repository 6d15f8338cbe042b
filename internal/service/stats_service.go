package service

import (
	"context"

	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/repository"
	apperrors "github.com/spec-kit/staff-service/pkg/util/errorutil"
)

// StatsService serves dashboard counters.
type StatsService struct {
	stats repository.StatsRepository
}

// NewStatsService builds the service.
func NewStatsService(stats repository.StatsRepository) *StatsService {
	return &StatsService{stats: stats}
}

// Stats returns the counters.
func (s *StatsService) Stats(ctx context.Context, actor *domain.Account) (*domain.Stats, error) {
	if err := requireAuthority(actor, domain.AuthorityStaffAdmin); err != nil {
		return nil, err
	}
	stats, err := s.stats.Stats(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return stats, nil
}
