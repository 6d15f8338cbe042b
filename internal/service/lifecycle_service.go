package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-service/internal/config"
	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/events"
	"github.com/spec-kit/staff-service/internal/notify"
	"github.com/spec-kit/staff-service/internal/repository"
	apperrors "github.com/spec-kit/staff-service/pkg/util/errorutil"
)

// LifecycleService owns every transition of a staff member: enrollment, probation,
// strikes, rank, team and removal.
type LifecycleService struct {
	accounts     repository.AccountRepository
	teams        repository.TeamRepository
	applications repository.ApplicationRepository
	grantor      CapabilityGrantor
	approvals    *ApprovalService
	outbox       outbox
	cfg          config.LifecycleConfig
	logger       *zap.Logger
	now          func() time.Time
}

// StrikeResult is returned by AddStrike.
type StrikeResult struct {
	Account         *domain.Account
	Strikes         int
	RequiresFiring  bool
	FiringRequestID string
}

// TeamView is a team with its members resolved.
type TeamView struct {
	Team    *domain.Team
	Members []domain.Account
}

// SweepResult summarizes one probation sweep.
type SweepResult struct {
	Due       int
	Completed int
	Failed    int
}

// NewLifecycleService builds the engine.
func NewLifecycleService(repos *repository.Repositories, grantor CapabilityGrantor, approvals *ApprovalService, out outbox, cfg config.LifecycleConfig, logger *zap.Logger) *LifecycleService {
	if cfg.ProbationDuration <= 0 {
		cfg.ProbationDuration = 7 * 24 * time.Hour
	}
	if cfg.StrikeThreshold <= 0 {
		cfg.StrikeThreshold = 3
	}
	return &LifecycleService{
		accounts:     repos.Accounts,
		teams:        repos.Teams,
		applications: repos.Applications,
		grantor:      grantor,
		approvals:    approvals,
		outbox:       out,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// ReviewApplication approves or rejects a pending application. Approving a staff
// application enrolls the applicant; approving a whitelist application grants whitelist.
func (s *LifecycleService) ReviewApplication(ctx context.Context, actor *domain.Account, appID string, status domain.ApplicationStatus, teamID *string) (*domain.Application, error) {
	if err := requireAuthority(actor, domain.AuthorityStaffAdmin); err != nil {
		return nil, err
	}
	if !status.Terminal() {
		return nil, apperrors.NewValidationError("status must be approved or rejected", map[string]any{"status": status})
	}

	app, err := s.applications.GetByID(ctx, appID)
	if err != nil {
		return nil, mapRepoErr(err, "application")
	}
	if app.Status.Terminal() {
		return nil, apperrors.NewConflict("application already reviewed", map[string]any{"application_id": app.ID, "status": app.Status})
	}

	enroll := status == domain.ApplicationStatusApproved && app.TypeKind == domain.ApplicationKindStaff
	var team *domain.Team
	if enroll {
		if err := s.ensureNotStaff(ctx, app.ApplicantID); err != nil {
			return nil, err
		}
		if team, err = s.selectTeam(ctx, teamID); err != nil {
			return nil, err
		}
	}

	review := repository.ApplicationReview{
		Status:         status,
		ReviewerID:     actor.DiscordID,
		ReviewedAt:     s.now().UTC(),
		AssignedTeamID: teamIDOf(team),
	}

	var reviewed *domain.Application
	if enroll {
		if _, err := s.accounts.EnsureAccount(ctx, app.ApplicantID, app.ApplicantName); err != nil {
			return nil, apperrors.MapError(err)
		}
		enrollment := s.enrollment(app.ApplicantID, app.ApplicantName, team)
		var account *domain.Account
		reviewed, account, err = s.applications.ApproveAndEnroll(ctx, app.ID, review, enrollment)
		if err != nil {
			return nil, reviewErr(err, app)
		}
		s.afterEnroll(ctx, account, team, enrollment.ProbationEnd)
	} else {
		reviewed, err = s.applications.Review(ctx, app.ID, review)
		if err != nil {
			return nil, reviewErr(err, app)
		}
		if status == domain.ApplicationStatusApproved && reviewed.TypeKind == domain.ApplicationKindWhitelist {
			s.outbox.grant(ctx, reviewed.ApplicantID, domain.CapabilityWhitelist)
		}
	}

	s.outbox.channel(ctx, events.ChannelApplications, notify.KindApplicationResult, notify.Data{
		TargetID:   reviewed.ApplicantID,
		TargetName: reviewed.ApplicantName,
		ActorID:    actor.DiscordID,
		TypeName:   reviewed.TypeName,
		Status:     string(reviewed.Status),
		TeamName:   teamNameOf(team),
	})
	return reviewed, nil
}

// AddStaff enrolls an account directly, with the same effects as an approved staff
// application.
func (s *LifecycleService) AddStaff(ctx context.Context, actor *domain.Account, discordID, username string, teamID *string) (*domain.Account, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	discordID = strings.TrimSpace(discordID)
	if discordID == "" {
		return nil, apperrors.NewValidationError("discord_id is required", nil)
	}
	if err := s.ensureNotStaff(ctx, discordID); err != nil {
		return nil, err
	}
	team, err := s.selectTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return s.enroll(ctx, discordID, username, team)
}

func (s *LifecycleService) ensureNotStaff(ctx context.Context, accountID string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperrors.MapError(err)
	}
	if account.IsStaff() {
		return apperrors.NewConflict("account is already a staff member", map[string]any{"discord_id": accountID})
	}
	return nil
}

// selectTeam returns the requested team, or the team with the fewest members. Teams are
// listed in creation order so ties resolve to the oldest team. It returns nil when no
// team exists.
func (s *LifecycleService) selectTeam(ctx context.Context, teamID *string) (*domain.Team, error) {
	if teamID != nil && strings.TrimSpace(*teamID) != "" {
		team, err := s.teams.GetByID(ctx, *teamID)
		if err != nil {
			return nil, mapRepoErr(err, "team")
		}
		return team, nil
	}
	teams, err := s.teams.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	var best *domain.Team
	for i := range teams {
		if best == nil || len(teams[i].Members) < len(best.Members) {
			best = &teams[i]
		}
	}
	return best, nil
}

func (s *LifecycleService) enroll(ctx context.Context, accountID, username string, team *domain.Team) (*domain.Account, error) {
	if _, err := s.accounts.EnsureAccount(ctx, accountID, username); err != nil {
		return nil, apperrors.MapError(err)
	}
	enrollment := s.enrollment(accountID, username, team)
	account, err := s.accounts.Enroll(ctx, enrollment)
	if err != nil {
		return nil, enrollErr(err, accountID)
	}
	s.afterEnroll(ctx, account, team, enrollment.ProbationEnd)
	return account, nil
}

func (s *LifecycleService) enrollment(accountID, username string, team *domain.Team) domain.Enrollment {
	return domain.Enrollment{
		AccountID:    accountID,
		Username:     username,
		TeamID:       teamIDOf(team),
		ProbationEnd: s.now().UTC().Add(s.cfg.ProbationDuration),
	}
}

func (s *LifecycleService) afterEnroll(ctx context.Context, account *domain.Account, team *domain.Team, end time.Time) {
	s.outbox.grant(ctx, account.DiscordID, domain.CapabilityProbation)
	if team != nil && team.HeadAdminID != nil {
		s.outbox.direct(ctx, *team.HeadAdminID, notify.KindOnboardingGuide, notify.Data{
			TargetID:     account.DiscordID,
			TargetName:   account.Username,
			TeamName:     team.Name,
			ProbationEnd: &end,
		})
	}
}

// enrollErr maps enrollment failures. The team check comes first because a vanished team
// also matches ErrNotFound.
func enrollErr(err error, accountID string) error {
	switch {
	case errors.Is(err, repository.ErrTeamNotFound):
		return apperrors.NewNotFound("team", nil)
	case errors.Is(err, repository.ErrAlreadyStaff):
		return apperrors.NewConflict("account is already a staff member", map[string]any{"discord_id": accountID})
	}
	return mapRepoErr(err, "account")
}

// reviewErr maps review failures. A failed enrollment leaves the application pending.
func reviewErr(err error, app *domain.Application) error {
	switch {
	case errors.Is(err, repository.ErrTeamNotFound), errors.Is(err, repository.ErrAlreadyStaff):
		return enrollErr(err, app.ApplicantID)
	case errors.Is(err, repository.ErrStateConflict):
		return apperrors.NewConflict("application already reviewed", map[string]any{"application_id": app.ID})
	}
	return mapRepoErr(err, "application")
}

// ledMember loads memberID and checks that actor leads the member's team.
func (s *LifecycleService) ledMember(ctx context.Context, actor *domain.Account, memberID string) (*domain.Team, *domain.Account, error) {
	if actor == nil {
		return nil, nil, apperrors.NewUnauthorized("not authenticated")
	}
	team, err := s.teams.GetByHeadAdmin(ctx, actor.DiscordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperrors.NewForbidden("head admin of a team required")
		}
		return nil, nil, apperrors.MapError(err)
	}
	member, err := s.accounts.GetByID(ctx, memberID)
	if err != nil {
		return nil, nil, mapRepoErr(err, "staff member")
	}
	if !member.IsStaff() || member.TeamID == nil || *member.TeamID != team.ID {
		return nil, nil, apperrors.NewForbidden("member is not on your team")
	}
	return team, member, nil
}

// AddStrike records a strike. Reaching the threshold opens a firing request unless one is
// already pending for the member.
func (s *LifecycleService) AddStrike(ctx context.Context, actor *domain.Account, memberID, reason string) (*StrikeResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("reason is required", nil)
	}
	team, _, err := s.ledMember(ctx, actor, memberID)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.AddStrike(ctx, memberID, team.ID, note(domain.NoteKindStrike, reason, actor.DiscordID, s.now().UTC()))
	if err != nil {
		return nil, mapRepoErr(err, "staff member")
	}
	s.outbox.direct(ctx, memberID, notify.KindStrikeAdded, notify.Data{
		TargetID:    memberID,
		ActorID:     actor.DiscordID,
		Reason:      reason,
		StrikeCount: account.Strikes,
		Threshold:   s.cfg.StrikeThreshold,
	})

	result := &StrikeResult{
		Account:        account,
		Strikes:        account.Strikes,
		RequiresFiring: account.Strikes >= s.cfg.StrikeThreshold,
	}
	if result.RequiresFiring {
		id, err := s.requestFiring(ctx, actor, account)
		if err != nil {
			return nil, err
		}
		result.FiringRequestID = id
	}
	return result, nil
}

func (s *LifecycleService) requestFiring(ctx context.Context, actor *domain.Account, account *domain.Account) (string, error) {
	strikes := account.StrikeNotes()
	req := &domain.ApprovalRequest{
		Kind:        domain.RequestKindFiring,
		TargetID:    account.DiscordID,
		RequestedBy: actor.DiscordID,
		Reason:      fmt.Sprintf("reached %d strikes", account.Strikes),
		Strikes:     strikes,
	}
	err := s.approvals.Open(ctx, req, notify.Data{
		TargetID:    account.DiscordID,
		TargetName:  account.Username,
		ActorID:     actor.DiscordID,
		StrikeCount: account.Strikes,
		Strikes:     strikes,
	})
	if errors.Is(err, repository.ErrDuplicatePending) {
		pending, findErr := s.approvals.Pending(ctx, domain.RequestKindFiring, account.DiscordID)
		if findErr != nil {
			return "", mapRepoErr(findErr, "approval request")
		}
		return pending.ID, nil
	}
	if err != nil {
		return "", apperrors.MapError(err)
	}
	return req.ID, nil
}

// AddNote appends a note to a member of the actor's team.
func (s *LifecycleService) AddNote(ctx context.Context, actor *domain.Account, memberID, text string) (*domain.Account, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("text is required", nil)
	}
	if _, _, err := s.ledMember(ctx, actor, memberID); err != nil {
		return nil, err
	}
	account, err := s.accounts.AppendNote(ctx, memberID, note(domain.NoteKindNote, text, actor.DiscordID, s.now().UTC()))
	if err != nil {
		return nil, mapRepoErr(err, "staff member")
	}
	s.outbox.channel(ctx, events.ChannelStaffLog, notify.KindNoteAdded, notify.Data{
		TargetID: memberID,
		ActorID:  actor.DiscordID,
		Text:     text,
	})
	return account, nil
}

// Uprank sets the member's rank. The rank capabilities are swapped first; if the swap
// fails nothing is written.
func (s *LifecycleService) Uprank(ctx context.Context, actor *domain.Account, memberID string, rank domain.Rank) (*domain.Account, error) {
	if !rank.Valid() {
		return nil, apperrors.NewValidationError("invalid rank", map[string]any{"rank": rank, "allowed": domain.Ranks})
	}
	if _, _, err := s.ledMember(ctx, actor, memberID); err != nil {
		return nil, err
	}

	if s.grantor != nil {
		if err := s.grantor.Swap(ctx, memberID, domain.RankCapabilities(), domain.RankCapability(rank)); err != nil {
			return nil, apperrors.NewExternalServiceError("discord", err)
		}
	}

	account, err := s.accounts.SetRank(ctx, memberID, rank, note(domain.NoteKindSystem, "rank set to "+string(rank), actor.DiscordID, s.now().UTC()))
	if err != nil {
		return nil, mapRepoErr(err, "staff member")
	}
	data := notify.Data{TargetID: memberID, ActorID: actor.DiscordID, Rank: string(rank)}
	s.outbox.channel(ctx, events.ChannelStaffLog, notify.KindRankChanged, data)
	s.outbox.direct(ctx, memberID, notify.KindRankChanged, data)
	return account, nil
}

// Fire applies an approved firing request.
func (s *LifecycleService) Fire(ctx context.Context, req *domain.ApprovalRequest) error {
	prior, err := s.accounts.Reset(ctx, req.TargetID)
	if err != nil {
		return err
	}
	s.afterRemoval(ctx, prior, notify.Data{
		TargetID: req.TargetID,
		Reason:   req.Reason,
		Strikes:  req.Strikes,
	})
	return nil
}

// RemoveStaff fires a member immediately without an approval request.
func (s *LifecycleService) RemoveStaff(ctx context.Context, actor *domain.Account, memberID, reason string) error {
	if err := requireSuperAdmin(actor); err != nil {
		return err
	}
	prior, err := s.accounts.Reset(ctx, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return apperrors.NewConflict("account is not a staff member", map[string]any{"discord_id": memberID})
		}
		return mapRepoErr(err, "staff member")
	}
	reason = strings.TrimSpace(reason)
	s.afterRemoval(ctx, prior, notify.Data{
		TargetID: memberID,
		Reason:   reason,
		Strikes:  prior.StrikeNotes(),
	})
	s.outbox.channel(ctx, events.ChannelStaffLog, notify.KindStaffRemoved, notify.Data{
		TargetID:   memberID,
		TargetName: prior.Username,
		ActorID:    actor.DiscordID,
		Reason:     reason,
	})
	return nil
}

func (s *LifecycleService) afterRemoval(ctx context.Context, prior *domain.Account, data notify.Data) {
	s.outbox.revoke(ctx, prior.DiscordID, domain.StaffCapabilities())
	data.TargetName = prior.Username
	s.outbox.direct(ctx, prior.DiscordID, notify.KindFired, data)
}

// RemoveStrike removes one strike. The count never goes below zero and pending firing
// requests are left as they are.
func (s *LifecycleService) RemoveStrike(ctx context.Context, actor *domain.Account, memberID string) (*domain.Account, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	account, err := s.accounts.RemoveStrike(ctx, memberID, note(domain.NoteKindStrikeRemoved, "strike removed", actor.DiscordID, s.now().UTC()))
	if err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, apperrors.NewConflict("member has no strikes to remove", map[string]any{"discord_id": memberID})
		}
		return nil, mapRepoErr(err, "staff member")
	}
	data := notify.Data{TargetID: memberID, ActorID: actor.DiscordID, StrikeCount: account.Strikes}
	s.outbox.channel(ctx, events.ChannelStaffLog, notify.KindStrikeRemoved, data)
	s.outbox.direct(ctx, memberID, notify.KindStrikeRemoved, data)
	return account, nil
}

// TransferStaff moves a member to another team.
func (s *LifecycleService) TransferStaff(ctx context.Context, actor *domain.Account, memberID, teamID string) (*domain.Account, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, mapRepoErr(err, "team")
	}
	account, err := s.accounts.TransferTeam(ctx, memberID, team.ID, note(domain.NoteKindSystem, "transferred to "+team.Name, actor.DiscordID, s.now().UTC()))
	if err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, apperrors.NewConflict("account is not a staff member", map[string]any{"discord_id": memberID})
		}
		return nil, mapRepoErr(err, "staff member")
	}
	data := notify.Data{TargetID: memberID, TargetName: account.Username, ActorID: actor.DiscordID, TeamName: team.Name}
	s.outbox.channel(ctx, events.ChannelStaffLog, notify.KindStaffTransferred, data)
	s.outbox.direct(ctx, memberID, notify.KindStaffTransferred, data)
	return account, nil
}

// MyTeam returns the team the actor leads with its members.
func (s *LifecycleService) MyTeam(ctx context.Context, actor *domain.Account) (*TeamView, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("not authenticated")
	}
	team, err := s.teams.GetByHeadAdmin(ctx, actor.DiscordID)
	if err != nil {
		return nil, mapRepoErr(err, "team")
	}
	staff := domain.StaffStatusMember
	members, err := s.accounts.List(ctx, repository.AccountFilter{TeamID: &team.ID, StaffStatus: &staff, Limit: 500})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &TeamView{Team: team, Members: members}, nil
}

// SweepProbation promotes every member whose probation has ended. The capability swap
// runs first; probation is cleared only after it succeeded, so failures are retried by
// the next sweep. A member removed while the swap was in flight gets the staff
// capability revoked again.
func (s *LifecycleService) SweepProbation(ctx context.Context) (SweepResult, error) {
	now := s.now().UTC()
	due, err := s.accounts.ListProbationDue(ctx, now)
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{Due: len(due)}
	for _, listed := range due {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		logger := s.logger.With(zap.String("discord_id", listed.DiscordID))
		account, err := s.accounts.GetByID(ctx, listed.DiscordID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				logger.Error("reload probation member", zap.Error(err))
				result.Failed++
			}
			continue
		}
		if !account.IsStaff() || !account.Probation {
			continue
		}
		if s.grantor != nil {
			if err := s.grantor.Swap(ctx, account.DiscordID, []domain.Capability{domain.CapabilityProbation}, domain.CapabilityStaff); err != nil {
				logger.Warn("probation capability upgrade failed", zap.Error(err))
				result.Failed++
				continue
			}
		}
		changed, err := s.accounts.CompleteProbation(ctx, account.DiscordID, now)
		if err != nil {
			logger.Error("complete probation", zap.Error(err))
			result.Failed++
			continue
		}
		if !changed {
			s.compensateSwap(ctx, account.DiscordID, logger)
			continue
		}
		result.Completed++
		data := notify.Data{TargetID: account.DiscordID, TargetName: account.Username}
		s.outbox.direct(ctx, account.DiscordID, notify.KindProbationCompleted, data)
		s.outbox.channel(ctx, events.ChannelStaffLog, notify.KindProbationCompleted, data)
	}
	return result, nil
}

// compensateSwap revokes the staff capability from an account that stopped being a
// staff member after its swap. A member that is still staff keeps it.
func (s *LifecycleService) compensateSwap(ctx context.Context, discordID string, logger *zap.Logger) {
	if s.grantor == nil {
		return
	}
	current, err := s.accounts.GetByID(ctx, discordID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		logger.Warn("reload after probation swap", zap.Error(err))
		return
	case current.IsStaff():
		return
	}
	logger.Info("revoking staff capability from removed member")
	s.outbox.revoke(ctx, discordID, []domain.Capability{domain.CapabilityStaff})
}

func teamIDOf(team *domain.Team) *string {
	if team == nil {
		return nil
	}
	id := team.ID
	return &id
}

func teamNameOf(team *domain.Team) string {
	if team == nil {
		return ""
	}
	return team.Name
}
