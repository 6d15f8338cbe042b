package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-service/internal/config"
	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/gameserver"
	"github.com/spec-kit/staff-service/internal/notify"
	"github.com/spec-kit/staff-service/internal/repository"
	apperrors "github.com/spec-kit/staff-service/pkg/util/errorutil"
)

// Firer applies an approved firing request.
type Firer interface {
	Fire(ctx context.Context, req *domain.ApprovalRequest) error
}

// ApprovalService coordinates resolve-once approval requests for firings and punishments.
type ApprovalService struct {
	approvals  repository.ApprovalRepository
	accounts   repository.AccountRepository
	reports    repository.ReportRepository
	firer      Firer
	approverID string
	outbox     outbox
	now        func() time.Time
}

// ApprovalListFilter describes listing parameters.
type ApprovalListFilter struct {
	Kind   *domain.RequestKind
	Status *domain.RequestStatus
	Limit  int
	Offset int
}

// NewApprovalService builds the service. The firer is bound by New once the lifecycle
// service exists.
func NewApprovalService(repos *repository.Repositories, cfg config.DiscordConfig, out outbox) *ApprovalService {
	return &ApprovalService{
		approvals:  repos.Approvals,
		accounts:   repos.Accounts,
		reports:    repos.Reports,
		approverID: cfg.FiringApproverID,
		outbox:     out,
		now:        time.Now,
	}
}

// Open persists req as pending and queues its interactive prompt. It returns
// repository.ErrDuplicatePending unchanged so callers can decide how to treat it.
func (s *ApprovalService) Open(ctx context.Context, req *domain.ApprovalRequest, data notify.Data) error {
	if err := s.approvals.Create(ctx, req); err != nil {
		return err
	}
	kind := notify.KindFiringPrompt
	if req.Kind == domain.RequestKindPunishment {
		kind = notify.KindPunishmentPrompt
	}
	data.RequestID = req.ID
	data.RequestKind = string(req.Kind)
	s.outbox.prompt(ctx, req.ID, kind, data)
	return nil
}

// Resolve applies decision to the request on behalf of actorID. Only one call per request
// can succeed; later calls get a conflict and cause no side effects.
func (s *ApprovalService) Resolve(ctx context.Context, requestID, actorID string, decision domain.Decision) (*domain.ApprovalRequest, error) {
	status, ok := decision.Status()
	if !ok {
		return nil, apperrors.NewValidationError("decision must be approve or reject", map[string]any{"decision": decision})
	}

	req, err := s.approvals.GetByID(ctx, requestID)
	if err != nil {
		return nil, mapRepoErr(err, "approval request")
	}
	if err := s.authorize(ctx, req, actorID); err != nil {
		return nil, err
	}

	claimed, err := s.approvals.Claim(ctx, req.ID, status, actorID, s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, apperrors.NewConflict("approval request already resolved", map[string]any{"request_id": req.ID})
		}
		return nil, mapRepoErr(err, "approval request")
	}

	s.applySideEffects(ctx, claimed, actorID)
	s.outbox.resolved(ctx, claimed.ID, notify.Data{
		TargetID:    claimed.TargetID,
		ActorID:     actorID,
		Status:      string(claimed.Status),
		RequestID:   claimed.ID,
		RequestKind: string(claimed.Kind),
	})
	return claimed, nil
}

func (s *ApprovalService) authorize(ctx context.Context, req *domain.ApprovalRequest, actorID string) error {
	switch req.Kind {
	case domain.RequestKindFiring:
		if s.approverID == "" || actorID != s.approverID {
			return apperrors.NewForbidden("only the designated approver can resolve firing requests")
		}
		return nil
	case domain.RequestKindPunishment:
		actor, err := s.accounts.GetByID(ctx, actorID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewForbidden("staff admin required")
			}
			return apperrors.MapError(err)
		}
		if !actor.Authority.AtLeast(domain.AuthorityStaffAdmin) {
			return apperrors.NewForbidden("staff admin required")
		}
		return nil
	}
	return apperrors.NewValidationError("unknown request kind", map[string]any{"kind": req.Kind})
}

// applySideEffects runs after a successful claim. Failures are logged; the resolution stands.
func (s *ApprovalService) applySideEffects(ctx context.Context, req *domain.ApprovalRequest, actorID string) {
	logger := s.outbox.logger.With(zap.String("request_id", req.ID), zap.String("kind", string(req.Kind)))

	switch req.Kind {
	case domain.RequestKindFiring:
		if req.Status != domain.RequestStatusApproved || s.firer == nil {
			return
		}
		if err := s.firer.Fire(ctx, req); err != nil {
			logger.Warn("apply approved firing", zap.String("target_id", req.TargetID), zap.Error(err))
		}
	case domain.RequestKindPunishment:
		if req.ReportID != nil {
			if err := s.reports.SetPunishmentStatus(ctx, *req.ReportID, req.Status); err != nil {
				logger.Warn("record punishment status", zap.String("report_id", *req.ReportID), zap.Error(err))
			}
		}
		if req.Status != domain.RequestStatusApproved || req.Punishment == nil || req.Punishment.Type == domain.PunishmentNone {
			return
		}
		s.outbox.command(ctx, gameserver.Command{
			Action:        req.Punishment.Type,
			Player:        req.TargetID,
			DurationHours: req.Punishment.DurationHours,
			Reason:        req.Punishment.Reason,
			ReportID:      deref(req.ReportID),
			ApprovedBy:    actorID,
		})
	}
}

// Get returns one request.
func (s *ApprovalService) Get(ctx context.Context, id string) (*domain.ApprovalRequest, error) {
	req, err := s.approvals.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "approval request")
	}
	return req, nil
}

// Pending returns the oldest pending request of kind for target.
func (s *ApprovalService) Pending(ctx context.Context, kind domain.RequestKind, targetID string) (*domain.ApprovalRequest, error) {
	return s.approvals.FindPending(ctx, kind, targetID)
}

// List returns requests, newest first.
func (s *ApprovalService) List(ctx context.Context, actor *domain.Account, filter ApprovalListFilter) ([]domain.ApprovalRequest, error) {
	if err := requireAuthority(actor, domain.AuthorityStaffAdmin); err != nil {
		return nil, err
	}
	return s.approvals.List(ctx, repository.ApprovalFilter{
		Kind:   filter.Kind,
		Status: filter.Status,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}
