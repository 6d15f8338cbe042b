package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/events"
	"github.com/spec-kit/staff-service/internal/notify"
	"github.com/spec-kit/staff-service/internal/repository"
	apperrors "github.com/spec-kit/staff-service/pkg/util/errorutil"
)

// ReportService handles player reports and the punishments decided on them.
type ReportService struct {
	reports   repository.ReportRepository
	approvals *ApprovalService
	outbox    outbox
	now       func() time.Time
}

// ReportCreateInput describes a new report.
type ReportCreateInput struct {
	ReportedPlayer string
	Category       string
	Description    string
	Evidence       *string
}

// PunishmentInput is the sanction an admin decides.
type PunishmentInput struct {
	Type          domain.PunishmentType
	DurationHours int
	Reason        string
}

// ReportUpdateInput lists admin changes; nil fields are left unchanged.
type ReportUpdateInput struct {
	Status     *domain.ReportStatus
	AdminNotes *string
	Punishment *PunishmentInput
}

// ReportListFilter describes listing parameters.
type ReportListFilter struct {
	Status *domain.ReportStatus
	Limit  int
	Offset int
}

// NewReportService builds the service.
func NewReportService(repos *repository.Repositories, approvals *ApprovalService, out outbox) *ReportService {
	return &ReportService{
		reports:   repos.Reports,
		approvals: approvals,
		outbox:    out,
		now:       time.Now,
	}
}

// Create files a report as the actor and announces it to the reports channel.
func (s *ReportService) Create(ctx context.Context, actor *domain.Account, input ReportCreateInput) (*domain.Report, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("not authenticated")
	}
	input.ReportedPlayer = strings.TrimSpace(input.ReportedPlayer)
	input.Description = strings.TrimSpace(input.Description)
	if input.ReportedPlayer == "" {
		return nil, apperrors.NewValidationError("reported_player is required", nil)
	}
	if input.Description == "" {
		return nil, apperrors.NewValidationError("description is required", nil)
	}
	if !domain.ValidReportCategory(input.Category) {
		return nil, apperrors.NewValidationError("invalid category", map[string]any{"category": input.Category, "allowed": domain.ReportCategories})
	}
	if input.Evidence != nil && strings.TrimSpace(*input.Evidence) == "" {
		input.Evidence = nil
	}

	report := &domain.Report{
		ReporterID:     actor.DiscordID,
		ReporterName:   actor.Username,
		ReportedPlayer: input.ReportedPlayer,
		Category:       input.Category,
		Description:    input.Description,
		Evidence:       input.Evidence,
		Status:         domain.ReportStatusPending,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.outbox.channel(ctx, events.ChannelReports, notify.KindReportCreated, notify.Data{
		ActorID:        actor.DiscordID,
		ReportID:       report.ID,
		ReportedPlayer: report.ReportedPlayer,
		Category:       report.Category,
		Text:           report.Description,
	})
	return report, nil
}

// List returns every report to staff and only their own to players.
func (s *ReportService) List(ctx context.Context, actor *domain.Account, filter ReportListFilter) ([]domain.Report, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("not authenticated")
	}
	query := repository.ReportFilter{Status: filter.Status, Limit: filter.Limit, Offset: filter.Offset}
	if !actor.Authority.AtLeast(domain.AuthorityStaffMember) {
		own := actor.DiscordID
		query.ReporterID = &own
	}
	return s.reports.List(ctx, query)
}

// Get returns a report the actor filed, or any report to staff.
func (s *ReportService) Get(ctx context.Context, actor *domain.Account, id string) (*domain.Report, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("not authenticated")
	}
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "report")
	}
	if report.ReporterID != actor.DiscordID && !actor.Authority.AtLeast(domain.AuthorityStaffMember) {
		return nil, apperrors.NewForbidden("not your report")
	}
	return report, nil
}

// Update applies admin changes. A ban or warn opens a punishment approval request; the
// game command runs only once that request is approved.
func (s *ReportService) Update(ctx context.Context, actor *domain.Account, id string, input ReportUpdateInput) (*domain.Report, error) {
	if err := requireAuthority(actor, domain.AuthorityStaffAdmin); err != nil {
		return nil, err
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *input.Status})
	}

	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "report")
	}

	update := repository.ReportUpdate{
		Status:     input.Status,
		AdminNotes: input.AdminNotes,
		HandledBy:  actor.DiscordID,
		HandledAt:  s.now().UTC(),
	}
	if input.Punishment != nil {
		punishment, err := s.decidePunishment(ctx, actor, report, *input.Punishment)
		if err != nil {
			return nil, err
		}
		update.Punishment = punishment
	}

	updated, err := s.reports.Update(ctx, report.ID, update)
	if err != nil {
		return nil, mapRepoErr(err, "report")
	}
	return updated, nil
}

func (s *ReportService) decidePunishment(ctx context.Context, actor *domain.Account, report *domain.Report, input PunishmentInput) (*domain.Punishment, error) {
	if !input.Type.Valid() {
		return nil, apperrors.NewValidationError("invalid punishment type", map[string]any{"type": input.Type})
	}
	if input.DurationHours < 0 {
		return nil, apperrors.NewValidationError("duration_hours must not be negative", nil)
	}
	if report.Punishment != nil && report.Punishment.Status == domain.RequestStatusPending {
		return nil, apperrors.NewConflict("a punishment for this report is awaiting approval", map[string]any{"request_id": report.Punishment.RequestID})
	}

	punishment := &domain.Punishment{
		Type:   input.Type,
		Reason: strings.TrimSpace(input.Reason),
	}
	if input.Type == domain.PunishmentBan {
		punishment.DurationHours = input.DurationHours
	}
	if input.Type == domain.PunishmentNone {
		return punishment, nil
	}

	reportID := report.ID
	req := &domain.ApprovalRequest{
		Kind:        domain.RequestKindPunishment,
		TargetID:    report.ReportedPlayer,
		RequestedBy: actor.DiscordID,
		Reason:      punishment.Reason,
		ReportID:    &reportID,
		Punishment:  punishment,
	}
	err := s.approvals.Open(ctx, req, notify.Data{
		TargetID:       report.ReportedPlayer,
		ActorID:        actor.DiscordID,
		ReportID:       report.ID,
		ReportedPlayer: report.ReportedPlayer,
		Category:       report.Category,
		Punishment:     punishment,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicatePending) {
			return nil, apperrors.NewConflict("a punishment request is already pending", nil)
		}
		return nil, apperrors.MapError(err)
	}
	punishment.Status = domain.RequestStatusPending
	punishment.RequestID = req.ID
	return punishment, nil
}
