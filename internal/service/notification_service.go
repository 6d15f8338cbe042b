package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-service/internal/config"
	"github.com/spec-kit/staff-service/internal/events"
	"github.com/spec-kit/staff-service/internal/notify"
	"github.com/spec-kit/staff-service/internal/repository"
)

// NotificationService delivers queued intents to Discord and the game server. Handlers
// return errors so the dispatcher can retry them.
type NotificationService struct {
	dispatcher events.Dispatcher
	approvals  repository.ApprovalRepository
	notifier   Notifier
	grantor    CapabilityGrantor
	commands   CommandSink
	channels   map[events.Channel]string
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, approvals repository.ApprovalRepository, notifier Notifier, grantor CapabilityGrantor, commands CommandSink, cfg config.DiscordConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		approvals:  approvals,
		notifier:   notifier,
		grantor:    grantor,
		commands:   commands,
		channels: map[events.Channel]string{
			events.ChannelApplications: cfg.ApplicationsChannelID,
			events.ChannelStaffLog:     cfg.StaffLogChannelID,
			events.ChannelReports:      cfg.ReportsChannelID,
			events.ChannelApprovals:    cfg.ApprovalsChannelID,
		},
		logger: logger,
	}
}

// RegisterHandlers subscribes to every intent type.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventChannelMessage, n.handleChannelMessage)
	n.dispatcher.Subscribe(events.EventDirectMessage, n.handleDirectMessage)
	n.dispatcher.Subscribe(events.EventApprovalPrompt, n.handleApprovalPrompt)
	n.dispatcher.Subscribe(events.EventPromptResolved, n.handlePromptResolved)
	n.dispatcher.Subscribe(events.EventCapabilityChange, n.handleCapabilityChange)
	n.dispatcher.Subscribe(events.EventGameCommand, n.handleGameCommand)
}

func (n *NotificationService) handleChannelMessage(ctx context.Context, event events.Event) error {
	var payload events.ChannelMessage
	if err := event.Decode(&payload); err != nil {
		return err
	}
	channelID := n.channels[payload.Channel]
	if channelID == "" || n.notifier == nil {
		n.logger.Debug("channel not configured", zap.String("channel", string(payload.Channel)), zap.String("kind", string(payload.Kind)))
		return nil
	}
	msg, err := notify.Build(payload.Kind, payload.Data)
	if err != nil {
		return err
	}
	return n.notifier.SendChannelMessage(ctx, channelID, msg)
}

func (n *NotificationService) handleDirectMessage(ctx context.Context, event events.Event) error {
	var payload events.DirectMessage
	if err := event.Decode(&payload); err != nil {
		return err
	}
	if n.notifier == nil {
		return nil
	}
	msg, err := notify.Build(payload.Kind, payload.Data)
	if err != nil {
		return err
	}
	return n.notifier.SendDirectMessage(ctx, payload.UserID, msg)
}

// handleApprovalPrompt posts the prompt once; a retry after the reference was stored is
// a no-op.
func (n *NotificationService) handleApprovalPrompt(ctx context.Context, event events.Event) error {
	var payload events.ApprovalPrompt
	if err := event.Decode(&payload); err != nil {
		return err
	}
	channelID := n.channels[events.ChannelApprovals]
	if channelID == "" || n.notifier == nil {
		n.logger.Warn("approvals channel not configured; prompt not posted", zap.String("request_id", payload.RequestID))
		return nil
	}
	req, err := n.approvals.GetByID(ctx, payload.RequestID)
	if err != nil {
		return fmt.Errorf("load request %s: %w", payload.RequestID, err)
	}
	if req.MessageRef != nil {
		return nil
	}
	msg, err := notify.Build(payload.Kind, payload.Data)
	if err != nil {
		return err
	}
	ref, err := n.notifier.PostApprovalPrompt(ctx, channelID, req.ID, msg)
	if err != nil {
		return err
	}
	return n.approvals.SetMessageRef(ctx, req.ID, ref)
}

func (n *NotificationService) handlePromptResolved(ctx context.Context, event events.Event) error {
	var payload events.PromptResolved
	if err := event.Decode(&payload); err != nil {
		return err
	}
	if n.notifier == nil {
		return nil
	}
	req, err := n.approvals.GetByID(ctx, payload.RequestID)
	if err != nil {
		return fmt.Errorf("load request %s: %w", payload.RequestID, err)
	}
	if req.MessageRef == nil {
		return errors.New("approval prompt not posted yet")
	}
	msg, err := notify.Build(notify.KindPromptResolved, payload.Data)
	if err != nil {
		return err
	}
	return n.notifier.EditPrompt(ctx, *req.MessageRef, msg)
}

func (n *NotificationService) handleCapabilityChange(ctx context.Context, event events.Event) error {
	var payload events.CapabilityChange
	if err := event.Decode(&payload); err != nil {
		return err
	}
	if n.grantor == nil {
		return nil
	}
	switch {
	case payload.Grant != nil && len(payload.Revoke) > 0:
		return n.grantor.Swap(ctx, payload.UserID, payload.Revoke, *payload.Grant)
	case payload.Grant != nil:
		return n.grantor.Grant(ctx, payload.UserID, *payload.Grant)
	}
	var errs []error
	for _, capability := range payload.Revoke {
		if err := n.grantor.Revoke(ctx, payload.UserID, capability); err != nil {
			errs = append(errs, fmt.Errorf("revoke %s: %w", capability, err))
		}
	}
	return errors.Join(errs...)
}

func (n *NotificationService) handleGameCommand(ctx context.Context, event events.Event) error {
	var payload events.GameCommand
	if err := event.Decode(&payload); err != nil {
		return err
	}
	if n.commands == nil {
		return nil
	}
	if err := n.commands.Execute(ctx, payload.Command); err != nil {
		return err
	}
	n.logger.Info("game command executed",
		zap.String("action", string(payload.Command.Action)),
		zap.String("player", payload.Command.Player),
		zap.String("report_id", payload.Command.ReportID),
	)
	return nil
}
