// Package gameserver forwards approved punishments to the game server's admin command
// endpoint.
package gameserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-service/internal/config"
	"github.com/spec-kit/staff-service/internal/domain"
)

// Command is one admin action against a player.
type Command struct {
	Action        domain.PunishmentType `json:"action"`
	Player        string                `json:"player"`
	DurationHours int                   `json:"duration_hours,omitempty"`
	Reason        string                `json:"reason,omitempty"`
	ReportID      string                `json:"report_id,omitempty"`
	ApprovedBy    string                `json:"approved_by,omitempty"`
}

// Line renders the command in console syntax, e.g. `ban griefer 24 "reason"`.
func (c Command) Line() string {
	parts := []string{string(c.Action), c.Player}
	if c.Action == domain.PunishmentBan && c.DurationHours > 0 {
		parts = append(parts, fmt.Sprint(c.DurationHours))
	}
	if c.Reason != "" {
		parts = append(parts, fmt.Sprintf("%q", c.Reason))
	}
	return strings.Join(parts, " ")
}

// HTTPSink posts commands to the configured endpoint.
type HTTPSink struct {
	rest *resty.Client
	url  string
}

// NewHTTPSink builds the sink.
func NewHTTPSink(cfg config.GameServerConfig) *HTTPSink {
	rest := resty.New().
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")
	if cfg.Token != "" {
		rest.SetAuthToken(cfg.Token)
	}
	return &HTTPSink{rest: rest, url: cfg.CommandURL}
}

// Execute sends cmd and fails on any non-2xx answer.
func (s *HTTPSink) Execute(ctx context.Context, cmd Command) error {
	resp, err := s.rest.R().
		SetContext(ctx).
		SetBody(map[string]any{"command": cmd.Line(), "details": cmd}).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("game command: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("game command status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// LogSink records commands when no game endpoint is configured.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink builds the sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Execute logs cmd.
func (s *LogSink) Execute(_ context.Context, cmd Command) error {
	s.logger.Info("game command (no endpoint configured)", zap.String("command", cmd.Line()))
	return nil
}
