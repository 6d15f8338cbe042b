package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/repository"
)

type teamRepo struct{ s *Store }

func (r *teamRepo) Create(_ context.Context, team *domain.Team) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.stamp()
	team.ID = uuid.NewString()
	team.Members = []string{}
	team.CreatedAt = now
	team.UpdatedAt = now
	s.teams[team.ID] = cloneTeam(team)
	return nil
}

func (r *teamRepo) Update(_ context.Context, team *domain.Team) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.teams[team.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Name = team.Name
	stored.Description = team.Description
	stored.HeadAdminID = cloneString(team.HeadAdminID)
	stored.UpdatedAt = s.stamp()

	team.Members = append([]string{}, stored.Members...)
	team.CreatedAt = stored.CreatedAt
	team.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *teamRepo) GetByID(_ context.Context, id string) (*domain.Team, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	team, ok := s.teams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneTeam(team), nil
}

func (r *teamRepo) GetByHeadAdmin(_ context.Context, accountID string) (*domain.Team, error) {
	for _, team := range r.sorted() {
		if team.IsHeadAdmin(accountID) {
			t := team
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *teamRepo) List(_ context.Context) ([]domain.Team, error) {
	return r.sorted(), nil
}

func (r *teamRepo) Delete(_ context.Context, id string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[id]; !ok {
		return repository.ErrNotFound
	}
	now := s.stamp()
	for _, account := range s.accounts {
		if account.TeamID != nil && *account.TeamID == id {
			account.TeamID = nil
			account.UpdatedAt = now
		}
	}
	delete(s.teams, id)
	return nil
}

func (r *teamRepo) sorted() []domain.Team {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.Team, 0, len(s.teams))
	for _, team := range s.teams {
		result = append(result, *cloneTeam(team))
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}
