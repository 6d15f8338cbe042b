package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/repository"
)

type accountRepo struct{ s *Store }

func (r *accountRepo) UpsertLogin(_ context.Context, identity domain.Identity, authority domain.Authority) (*domain.Account, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.stamp()
	account, ok := s.accounts[identity.ExternalID]
	if !ok {
		account = &domain.Account{
			DiscordID:   identity.ExternalID,
			StaffStatus: domain.StaffStatusPlayer,
			Notes:       []domain.Note{},
			CreatedAt:   now,
		}
		s.accounts[identity.ExternalID] = account
	}
	account.Username = identity.Username
	account.Avatar = identity.Avatar
	account.Authority = authority
	account.UpdatedAt = now

	if !authority.AtLeast(domain.AuthorityHeadAdmin) {
		s.clearHeadAdmin(identity.ExternalID, now)
	}
	return cloneAccount(account), nil
}

func (r *accountRepo) EnsureAccount(_ context.Context, discordID, username string) (*domain.Account, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[discordID]
	if !ok {
		now := s.stamp()
		account = &domain.Account{
			DiscordID:   discordID,
			Username:    username,
			Authority:   domain.AuthorityPlayer,
			StaffStatus: domain.StaffStatusPlayer,
			Notes:       []domain.Note{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.accounts[discordID] = account
	} else if username != "" {
		account.Username = username
	}
	return cloneAccount(account), nil
}

func (r *accountRepo) GetByID(_ context.Context, discordID string) (*domain.Account, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[discordID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAccount(account), nil
}

func (r *accountRepo) List(_ context.Context, filter repository.AccountFilter) ([]domain.Account, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.Account
	for _, account := range s.accounts {
		if filter.StaffStatus != nil && account.StaffStatus != *filter.StaffStatus {
			continue
		}
		if filter.TeamID != nil && (account.TeamID == nil || *account.TeamID != *filter.TeamID) {
			continue
		}
		if filter.Probation != nil && account.Probation != *filter.Probation {
			continue
		}
		result = append(result, *cloneAccount(account))
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].DiscordID < result[j].DiscordID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return page(result, filter.Limit, filter.Offset, 100), nil
}

func (r *accountRepo) Enroll(_ context.Context, enrollment domain.Enrollment) (*domain.Account, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.enrollable(enrollment)
	if err != nil {
		return nil, err
	}
	s.enroll(account, enrollment)
	return cloneAccount(account), nil
}

func (r *accountRepo) SetAuthority(_ context.Context, discordID string, authority domain.Authority) (*domain.Account, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[discordID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if account.IsStaff() && authority == domain.AuthorityPlayer {
		return nil, repository.ErrStateConflict
	}
	now := s.stamp()
	account.Authority = authority
	account.UpdatedAt = now
	if !authority.AtLeast(domain.AuthorityHeadAdmin) {
		s.clearHeadAdmin(discordID, now)
	}
	return cloneAccount(account), nil
}

func (r *accountRepo) Reset(_ context.Context, discordID string) (*domain.Account, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[discordID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !account.IsStaff() {
		return nil, repository.ErrStateConflict
	}
	prior := cloneAccount(account)

	now := s.stamp()
	s.moveOnRoster(discordID, nil, now)
	account.ResetStaffFields()
	account.Notes = []domain.Note{}
	if account.Authority == domain.AuthorityStaffMember {
		account.Authority = domain.AuthorityPlayer
	}
	account.UpdatedAt = now
	return prior, nil
}

func (r *accountRepo) AddStrike(_ context.Context, discordID, teamID string, note domain.Note) (*domain.Account, error) {
	return r.mutate(discordID, func(a *domain.Account) bool {
		if !a.IsStaff() || a.TeamID == nil || *a.TeamID != teamID {
			return false
		}
		a.Strikes++
		a.Notes = append(a.Notes, note)
		return true
	})
}

func (r *accountRepo) RemoveStrike(_ context.Context, discordID string, note domain.Note) (*domain.Account, error) {
	return r.mutate(discordID, func(a *domain.Account) bool {
		if !a.IsStaff() || a.Strikes <= 0 {
			return false
		}
		a.Strikes--
		a.Notes = append(a.Notes, note)
		return true
	})
}

func (r *accountRepo) AppendNote(_ context.Context, discordID string, note domain.Note) (*domain.Account, error) {
	return r.mutate(discordID, func(a *domain.Account) bool {
		if !a.IsStaff() {
			return false
		}
		a.Notes = append(a.Notes, note)
		return true
	})
}

func (r *accountRepo) SetRank(_ context.Context, discordID string, rank domain.Rank, note domain.Note) (*domain.Account, error) {
	return r.mutate(discordID, func(a *domain.Account) bool {
		if !a.IsStaff() {
			return false
		}
		a.Rank = &rank
		a.Notes = append(a.Notes, note)
		return true
	})
}

func (r *accountRepo) TransferTeam(_ context.Context, discordID, teamID string, note domain.Note) (*domain.Account, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[discordID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !account.IsStaff() {
		return nil, repository.ErrStateConflict
	}
	if _, ok := s.teams[teamID]; !ok {
		return nil, repository.ErrTeamNotFound
	}

	now := s.stamp()
	s.moveOnRoster(discordID, &teamID, now)
	account.TeamID = strPtr(teamID)
	account.Notes = append(account.Notes, note)
	account.UpdatedAt = now
	return cloneAccount(account), nil
}

func (r *accountRepo) ListProbationDue(_ context.Context, now time.Time) ([]domain.Account, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.Account
	for _, account := range s.accounts {
		if account.IsStaff() && account.Probation && account.ProbationEnd != nil && !account.ProbationEnd.After(now) {
			result = append(result, *cloneAccount(account))
		}
	}
	sortByTime(result, func(a domain.Account) time.Time { return *a.ProbationEnd }, false)
	return result, nil
}

func (r *accountRepo) CompleteProbation(_ context.Context, discordID string, now time.Time) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[discordID]
	if !ok || !account.IsStaff() || !account.Probation || account.ProbationEnd == nil || account.ProbationEnd.After(now) {
		return false, nil
	}
	account.Probation = false
	account.ProbationEnd = nil
	account.UpdatedAt = s.stamp()
	return true, nil
}

// mutate applies fn under the lock; fn reports whether the account was in the required state.
func (r *accountRepo) mutate(discordID string, fn func(*domain.Account) bool) (*domain.Account, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[discordID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	candidate := cloneAccount(account)
	if !fn(candidate) {
		return nil, repository.ErrStateConflict
	}
	candidate.UpdatedAt = s.stamp()
	s.accounts[discordID] = candidate
	return cloneAccount(candidate), nil
}

// enrollable checks that the enrollment can be applied. It must be called with the lock held.
func (s *Store) enrollable(enrollment domain.Enrollment) (*domain.Account, error) {
	account, ok := s.accounts[enrollment.AccountID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if account.IsStaff() {
		return nil, repository.ErrAlreadyStaff
	}
	if enrollment.TeamID != nil {
		if _, ok := s.teams[*enrollment.TeamID]; !ok {
			return nil, repository.ErrTeamNotFound
		}
	}
	return account, nil
}

// enroll applies a checked enrollment. It must be called with the lock held.
func (s *Store) enroll(account *domain.Account, enrollment domain.Enrollment) {
	now := s.stamp()
	s.moveOnRoster(account.DiscordID, enrollment.TeamID, now)
	s.clearHeadAdmin(account.DiscordID, now)

	rank := domain.RankTrainee
	account.StaffStatus = domain.StaffStatusMember
	account.Authority = domain.AuthorityStaffMember
	account.Rank = &rank
	account.Strikes = 0
	account.Notes = []domain.Note{}
	account.TeamID = cloneString(enrollment.TeamID)
	account.Probation = true
	account.ProbationEnd = timePtr(enrollment.ProbationEnd)
	account.UpdatedAt = now
}

// moveOnRoster must be called with the lock held.
func (s *Store) moveOnRoster(discordID string, teamID *string, now time.Time) {
	for _, team := range s.teams {
		if team.HasMember(discordID) {
			team.Members = removeString(team.Members, discordID)
			team.UpdatedAt = now
		}
	}
	if teamID == nil {
		return
	}
	if team, ok := s.teams[*teamID]; ok {
		team.Members = append(team.Members, discordID)
		team.UpdatedAt = now
	}
}

// clearHeadAdmin must be called with the lock held.
func (s *Store) clearHeadAdmin(discordID string, now time.Time) {
	for _, team := range s.teams {
		if team.IsHeadAdmin(discordID) {
			team.HeadAdminID = nil
			team.UpdatedAt = now
		}
	}
}
