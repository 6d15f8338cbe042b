package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-service/internal/api/dto"
	"github.com/spec-kit/staff-service/internal/service"
	apperrors "github.com/spec-kit/staff-service/pkg/util/errorutil"
)

// StaffHandler serves head admin team management, super admin staff operations and the
// public roster.
type StaffHandler struct {
	lifecycle *service.LifecycleService
	teams     *service.TeamService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(lifecycle *service.LifecycleService, teams *service.TeamService) *StaffHandler {
	return &StaffHandler{lifecycle: lifecycle, teams: teams}
}

// Roster GET /staff.
func (h *StaffHandler) Roster(c *fiber.Ctx) error {
	entries, err := h.teams.Roster(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rosterResponse(entries)})
}

// MyTeam GET /staff/my-team.
func (h *StaffHandler) MyTeam(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	view, err := h.lifecycle.MyTeam(c.UserContext(), account)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MyTeamResponse{
		Team:    teamResponse(view.Team),
		Members: accountResponses(view.Members),
	}})
}

// AddStrike POST /staff/my-team/members/:id/strike.
func (h *StaffHandler) AddStrike(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.StrikeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.lifecycle.AddStrike(c.UserContext(), account, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StrikeResponse{
		Member:          accountResponse(result.Account),
		Strikes:         result.Strikes,
		RequiresFiring:  result.RequiresFiring,
		FiringRequestID: result.FiringRequestID,
	}})
}

// AddNote POST /staff/my-team/members/:id/note.
func (h *StaffHandler) AddNote(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.NoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	member, err := h.lifecycle.AddNote(c.UserContext(), account, c.Params("id"), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": accountResponse(member)})
}

// Uprank POST /staff/my-team/members/:id/uprank.
func (h *StaffHandler) Uprank(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.UprankRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	member, err := h.lifecycle.Uprank(c.UserContext(), account, c.Params("id"), req.Rank)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": accountResponse(member)})
}

// RemoveStrike POST /super-admin/strikes/remove/:id.
func (h *StaffHandler) RemoveStrike(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	member, err := h.lifecycle.RemoveStrike(c.UserContext(), account, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": accountResponse(member)})
}

// Transfer POST /super-admin/staff/transfer.
func (h *StaffHandler) Transfer(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.DiscordID == "" || req.TeamID == "" {
		return apperrors.NewValidationError("discord_id, team_id required", nil)
	}
	member, err := h.lifecycle.TransferStaff(c.UserContext(), account, req.DiscordID, req.TeamID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": accountResponse(member)})
}

// Remove POST /super-admin/staff/remove/:id.
func (h *StaffHandler) Remove(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.RemoveStaffRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	if err := h.lifecycle.RemoveStaff(c.UserContext(), account, c.Params("id"), req.Reason); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Add POST /super-admin/staff/add.
func (h *StaffHandler) Add(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.AddStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	member, err := h.lifecycle.AddStaff(c.UserContext(), account, req.DiscordID, req.Username, req.TeamID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": accountResponse(member)})
}
