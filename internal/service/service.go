package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-service/internal/auth"
	"github.com/spec-kit/staff-service/internal/config"
	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/events"
	"github.com/spec-kit/staff-service/internal/gameserver"
	"github.com/spec-kit/staff-service/internal/notify"
	"github.com/spec-kit/staff-service/internal/repository"
	apperrors "github.com/spec-kit/staff-service/pkg/util/errorutil"
)

// IdentityProvider resolves an OAuth code into an identity with its guild roles.
type IdentityProvider interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*domain.Identity, error)
}

// Notifier delivers built messages.
type Notifier interface {
	SendChannelMessage(ctx context.Context, channelID string, msg notify.Message) error
	SendDirectMessage(ctx context.Context, userID string, msg notify.Message) error
	PostApprovalPrompt(ctx context.Context, channelID, requestID string, msg notify.Message) (string, error)
	EditPrompt(ctx context.Context, ref string, msg notify.Message) error
}

// CapabilityGrantor grants and revokes external capabilities.
type CapabilityGrantor interface {
	Grant(ctx context.Context, userID string, capability domain.Capability) error
	Revoke(ctx context.Context, userID string, capability domain.Capability) error
	Swap(ctx context.Context, userID string, old []domain.Capability, next domain.Capability) error
}

// CommandSink runs admin commands on the game server.
type CommandSink interface {
	Execute(ctx context.Context, cmd gameserver.Command) error
}

// Dependencies lists everything New needs.
type Dependencies struct {
	Config     config.Config
	Repos      *repository.Repositories
	Sessions   auth.SessionStore
	Identity   IdentityProvider
	Notifier   Notifier
	Grantor    CapabilityGrantor
	Commands   CommandSink
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// Services bundles every service.
type Services struct {
	Auth          *AuthService
	Accounts      *AccountService
	Lifecycle     *LifecycleService
	Approvals     *ApprovalService
	Applications  *ApplicationService
	Reports       *ReportService
	Teams         *TeamService
	Stats         *StatsService
	Notifications *NotificationService
}

// New wires the services together.
func New(deps Dependencies) *Services {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	out := outbox{dispatcher: deps.Dispatcher, logger: logger}

	approvals := NewApprovalService(deps.Repos, deps.Config.Discord, out)
	lifecycle := NewLifecycleService(deps.Repos, deps.Grantor, approvals, out, deps.Config.Lifecycle, logger)
	approvals.firer = lifecycle

	return &Services{
		Auth:          NewAuthService(deps.Repos.Accounts, deps.Sessions, deps.Identity, auth.NewClassifier(deps.Config.Discord), auth.NewStateManager(deps.Config.Auth.StateSecret, deps.Config.Auth.StateTTL)),
		Accounts:      NewAccountService(deps.Repos),
		Lifecycle:     lifecycle,
		Approvals:     approvals,
		Applications:  NewApplicationService(deps.Repos, lifecycle, out),
		Reports:       NewReportService(deps.Repos, approvals, out),
		Teams:         NewTeamService(deps.Repos),
		Stats:         NewStatsService(deps.Repos.Stats),
		Notifications: NewNotificationService(deps.Dispatcher, deps.Repos.Approvals, deps.Notifier, deps.Grantor, deps.Commands, deps.Config.Discord, logger),
	}
}

// outbox turns side effects into intents on the dispatcher. Publish failures are logged
// and never reach the caller.
type outbox struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

func (o outbox) publish(ctx context.Context, eventType events.EventType, subjectID string, payload any) {
	if o.dispatcher == nil {
		return
	}
	event, err := events.NewEvent(eventType, subjectID, payload)
	if err != nil {
		o.logger.Error("encode intent", zap.String("event_type", string(eventType)), zap.Error(err))
		return
	}
	if err := o.dispatcher.Publish(ctx, event); err != nil {
		o.logger.Warn("publish intent",
			zap.String("event_type", string(eventType)),
			zap.String("subject_id", subjectID),
			zap.Error(err),
		)
	}
}

func (o outbox) channel(ctx context.Context, channel events.Channel, kind notify.Kind, data notify.Data) {
	o.publish(ctx, events.EventChannelMessage, data.TargetID, events.ChannelMessage{Channel: channel, Kind: kind, Data: data})
}

func (o outbox) direct(ctx context.Context, userID string, kind notify.Kind, data notify.Data) {
	if userID == "" {
		return
	}
	o.publish(ctx, events.EventDirectMessage, userID, events.DirectMessage{UserID: userID, Kind: kind, Data: data})
}

func (o outbox) prompt(ctx context.Context, requestID string, kind notify.Kind, data notify.Data) {
	o.publish(ctx, events.EventApprovalPrompt, requestID, events.ApprovalPrompt{RequestID: requestID, Kind: kind, Data: data})
}

func (o outbox) resolved(ctx context.Context, requestID string, data notify.Data) {
	o.publish(ctx, events.EventPromptResolved, requestID, events.PromptResolved{RequestID: requestID, Data: data})
}

func (o outbox) grant(ctx context.Context, userID string, capability domain.Capability) {
	o.publish(ctx, events.EventCapabilityChange, userID, events.CapabilityChange{UserID: userID, Grant: &capability})
}

func (o outbox) revoke(ctx context.Context, userID string, capabilities []domain.Capability) {
	o.publish(ctx, events.EventCapabilityChange, userID, events.CapabilityChange{UserID: userID, Revoke: capabilities})
}

func (o outbox) command(ctx context.Context, cmd gameserver.Command) {
	o.publish(ctx, events.EventGameCommand, cmd.ReportID, events.GameCommand{Command: cmd})
}

// mapRepoErr converts repository sentinels into domain errors for resource.
func mapRepoErr(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrStateConflict):
		return apperrors.NewConflict(resource+" is not in the required state", nil)
	case errors.Is(err, repository.ErrDuplicatePending):
		return apperrors.NewConflict("a pending "+resource+" already exists", nil)
	}
	return apperrors.MapError(err)
}

func requireAuthority(actor *domain.Account, min domain.Authority) error {
	if actor == nil {
		return apperrors.NewUnauthorized("not authenticated")
	}
	if !actor.Authority.AtLeast(min) {
		return apperrors.NewForbidden("insufficient authority")
	}
	return nil
}

func requireSuperAdmin(actor *domain.Account) error {
	if actor == nil {
		return apperrors.NewUnauthorized("not authenticated")
	}
	if actor.Authority != domain.AuthoritySuperAdmin {
		return apperrors.NewForbidden("super admin required")
	}
	return nil
}

func note(kind domain.NoteKind, text, author string, at time.Time) domain.Note {
	return domain.Note{Kind: kind, Text: text, Author: author, CreatedAt: at}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
