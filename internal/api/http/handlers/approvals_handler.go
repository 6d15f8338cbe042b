package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-service/internal/api/dto"
	"github.com/spec-kit/staff-service/internal/discord"
	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/service"
	apperrors "github.com/spec-kit/staff-service/pkg/util/errorutil"
)

// ApprovalsHandler resolves approval requests from the dashboard and from Discord
// button clicks.
type ApprovalsHandler struct {
	service  *service.ApprovalService
	verifier *discord.Verifier
	logger   *zap.Logger
}

// NewApprovalsHandler constructs handler. A nil verifier disables the interactions
// endpoint.
func NewApprovalsHandler(approvalService *service.ApprovalService, verifier *discord.Verifier, logger *zap.Logger) *ApprovalsHandler {
	return &ApprovalsHandler{service: approvalService, verifier: verifier, logger: logger}
}

// List GET /approvals.
func (h *ApprovalsHandler) List(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	var filter service.ApprovalListFilter
	if kind := c.Query("kind"); kind != "" {
		k := domain.RequestKind(kind)
		filter.Kind = &k
	}
	if status := c.Query("status"); status != "" {
		s := domain.RequestStatus(status)
		filter.Status = &s
	}
	filter.Limit, filter.Offset = parsePage(c)

	requests, err := h.service.List(c.UserContext(), account, filter)
	if err != nil {
		return err
	}
	items := make([]dto.ApprovalResponse, 0, len(requests))
	for i := range requests {
		items = append(items, approvalResponse(&requests[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Resolve POST /approvals/:id/resolve.
func (h *ApprovalsHandler) Resolve(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	resolved, err := h.service.Resolve(c.UserContext(), c.Params("id"), account.DiscordID, req.Decision)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": approvalResponse(resolved)})
}

// Interaction POST /discord/interactions. Discord expects a 200 callback body for every
// verified interaction, so resolution failures are returned as ephemeral replies.
func (h *ApprovalsHandler) Interaction(c *fiber.Ctx) error {
	if h.verifier == nil {
		return apperrors.NewNotFound("interactions endpoint", nil)
	}
	body := c.Body()
	if !h.verifier.Verify(c.Get("X-Signature-Ed25519"), c.Get("X-Signature-Timestamp"), body) {
		return apperrors.NewUnauthorized("invalid request signature")
	}
	interaction, err := discord.ParseInteraction(body)
	if err != nil {
		return apperrors.NewValidationError("invalid interaction payload", nil)
	}

	switch interaction.Type {
	case discord.InteractionPing:
		return c.JSON(discord.Pong())
	case discord.InteractionMessageComponent:
	default:
		return c.JSON(discord.Ephemeral("Unsupported interaction."))
	}

	requestID, decision, ok := discord.ParseCustomID(interaction.Data.CustomID)
	if !ok {
		return c.JSON(discord.Ephemeral("Unknown action."))
	}
	resolved, err := h.service.Resolve(c.UserContext(), requestID, interaction.ActorID(), decision)
	if err != nil {
		domainErr := apperrors.ToDomainError(err)
		if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
			h.logger.Error("resolve from interaction", zap.String("request_id", requestID), zap.Error(err))
		}
		return c.JSON(discord.Ephemeral(domainErr.Message))
	}
	return c.JSON(discord.Ephemeral("Request " + string(resolved.Status) + "."))
}

func approvalResponse(r *domain.ApprovalRequest) dto.ApprovalResponse {
	return dto.ApprovalResponse{
		ID:          r.ID,
		Kind:        r.Kind,
		TargetID:    r.TargetID,
		RequestedBy: r.RequestedBy,
		Reason:      r.Reason,
		ReportID:    r.ReportID,
		Strikes:     r.Strikes,
		Punishment:  r.Punishment,
		Status:      r.Status,
		ReviewerID:  r.ReviewerID,
		ReviewedAt:  r.ReviewedAt,
		CreatedAt:   r.CreatedAt,
	}
}
