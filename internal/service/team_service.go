package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/repository"
	apperrors "github.com/spec-kit/staff-service/pkg/util/errorutil"
)

// TeamService manages staff teams.
type TeamService struct {
	teams    repository.TeamRepository
	accounts repository.AccountRepository
}

// TeamInput describes team metadata.
type TeamInput struct {
	Name        string
	Description string
	HeadAdminID *string
}

// NewTeamService builds the service.
func NewTeamService(repos *repository.Repositories) *TeamService {
	return &TeamService{teams: repos.Teams, accounts: repos.Accounts}
}

// List returns every team in creation order.
func (s *TeamService) List(ctx context.Context) ([]domain.Team, error) {
	return s.teams.List(ctx)
}

// Get returns one team.
func (s *TeamService) Get(ctx context.Context, id string) (*domain.Team, error) {
	team, err := s.teams.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "team")
	}
	return team, nil
}

// Create adds a team.
func (s *TeamService) Create(ctx context.Context, actor *domain.Account, input TeamInput) (*domain.Team, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validate(ctx, "", &input); err != nil {
		return nil, err
	}
	team := &domain.Team{
		Name:        input.Name,
		Description: input.Description,
		HeadAdminID: input.HeadAdminID,
	}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, apperrors.MapError(err)
	}
	return team, nil
}

// Update changes team metadata. The roster is managed by the lifecycle engine.
func (s *TeamService) Update(ctx context.Context, actor *domain.Account, id string, input TeamInput) (*domain.Team, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	team, err := s.teams.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "team")
	}
	if err := s.validate(ctx, team.ID, &input); err != nil {
		return nil, err
	}
	team.Name = input.Name
	team.Description = input.Description
	team.HeadAdminID = input.HeadAdminID
	if err := s.teams.Update(ctx, team); err != nil {
		return nil, mapRepoErr(err, "team")
	}
	return team, nil
}

// Delete removes a team; its members stay staff without a team.
func (s *TeamService) Delete(ctx context.Context, actor *domain.Account, id string) error {
	if err := requireSuperAdmin(actor); err != nil {
		return err
	}
	return mapRepoErr(s.teams.Delete(ctx, id), "team")
}

// validate checks the name and that the head admin exists, has head admin authority and
// does not already lead another team.
func (s *TeamService) validate(ctx context.Context, teamID string, input *TeamInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return apperrors.NewValidationError("name is required", nil)
	}
	if input.HeadAdminID == nil || strings.TrimSpace(*input.HeadAdminID) == "" {
		input.HeadAdminID = nil
		return nil
	}

	head, err := s.accounts.GetByID(ctx, *input.HeadAdminID)
	if err != nil {
		return mapRepoErr(err, "head admin account")
	}
	if !head.Authority.AtLeast(domain.AuthorityHeadAdmin) {
		return apperrors.NewValidationError("head admin must have head admin authority", map[string]any{"head_admin_id": head.DiscordID})
	}
	led, err := s.teams.GetByHeadAdmin(ctx, head.DiscordID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return apperrors.MapError(err)
	case led.ID != teamID:
		return apperrors.NewConflict("account already leads another team", map[string]any{"team_id": led.ID})
	}
	return nil
}

// RosterEntry is one team of the public roster.
type RosterEntry struct {
	Team      domain.Team
	HeadAdmin *domain.Account
	Members   []domain.Account
}

// Roster returns every team with its head admin and members, followed by a team-less
// entry for staff without a team when there are any.
func (s *TeamService) Roster(ctx context.Context) ([]RosterEntry, error) {
	teams, err := s.teams.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	staff := domain.StaffStatusMember
	members, err := s.accounts.List(ctx, repository.AccountFilter{StaffStatus: &staff, Limit: 1000})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	byTeam := make(map[string][]domain.Account)
	var unassigned []domain.Account
	for _, m := range members {
		if m.TeamID == nil {
			unassigned = append(unassigned, m)
			continue
		}
		byTeam[*m.TeamID] = append(byTeam[*m.TeamID], m)
	}

	entries := make([]RosterEntry, 0, len(teams)+1)
	for _, team := range teams {
		entry := RosterEntry{Team: team, Members: byTeam[team.ID]}
		if team.HeadAdminID != nil {
			if head, err := s.accounts.GetByID(ctx, *team.HeadAdminID); err == nil {
				entry.HeadAdmin = head
			}
		}
		entries = append(entries, entry)
	}
	if len(unassigned) > 0 {
		entries = append(entries, RosterEntry{Team: domain.Team{Name: "Unassigned"}, Members: unassigned})
	}
	return entries, nil
}
