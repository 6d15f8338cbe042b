package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-service/internal/api/dto"
	"github.com/spec-kit/staff-service/internal/service"
	apperrors "github.com/spec-kit/staff-service/pkg/util/errorutil"
)

// TeamsHandler serves staff team administration.
type TeamsHandler struct {
	service *service.TeamService
}

// NewTeamsHandler constructs handler.
func NewTeamsHandler(teamService *service.TeamService) *TeamsHandler {
	return &TeamsHandler{service: teamService}
}

// List GET /staff-teams.
func (h *TeamsHandler) List(c *fiber.Ctx) error {
	teams, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.TeamResponse, 0, len(teams))
	for i := range teams {
		items = append(items, teamResponse(&teams[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /staff-teams/:id.
func (h *TeamsHandler) Get(c *fiber.Ctx) error {
	team, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": teamResponse(team)})
}

// Create POST /staff-teams.
func (h *TeamsHandler) Create(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.TeamRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	team, err := h.service.Create(c.UserContext(), account, teamInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": teamResponse(team)})
}

// Update PUT /staff-teams/:id.
func (h *TeamsHandler) Update(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.TeamRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	team, err := h.service.Update(c.UserContext(), account, c.Params("id"), teamInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": teamResponse(team)})
}

// Delete DELETE /staff-teams/:id.
func (h *TeamsHandler) Delete(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), account, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func teamInput(req dto.TeamRequest) service.TeamInput {
	return service.TeamInput{
		Name:        req.Name,
		Description: req.Description,
		HeadAdminID: req.HeadAdminID,
	}
}
