package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-service/internal/events"
	"github.com/spec-kit/staff-service/internal/service"
)

// NotificationWorker delivers outbox intents through the notification service.
type NotificationWorker struct {
	notifications *service.NotificationService
	runner        events.Runner
	logger        *zap.Logger
}

// NewNotificationWorker wires handlers onto runner. runner may be nil for dispatchers
// that deliver inline.
func NewNotificationWorker(notifications *service.NotificationService, runner events.Runner, logger *zap.Logger) *NotificationWorker {
	return &NotificationWorker{notifications: notifications, runner: runner, logger: logger}
}

// Start registers notification handlers and starts background delivery.
func (w *NotificationWorker) Start() error {
	if w.notifications == nil {
		return nil
	}
	w.notifications.RegisterHandlers()
	if w.runner == nil {
		return nil
	}
	if err := w.runner.Start(); err != nil {
		return err
	}
	w.logger.Info("notification worker started")
	return nil
}

// Stop drains queued deliveries until ctx expires.
func (w *NotificationWorker) Stop(ctx context.Context) error {
	if w.runner == nil {
		return nil
	}
	err := w.runner.Stop(ctx)
	if err != nil {
		w.logger.Warn("notification worker stopped with pending deliveries", zap.Error(err))
		return err
	}
	w.logger.Info("notification worker stopped")
	return nil
}
