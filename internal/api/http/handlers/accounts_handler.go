package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-service/internal/api/dto"
	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/repository"
	"github.com/spec-kit/staff-service/internal/service"
	apperrors "github.com/spec-kit/staff-service/pkg/util/errorutil"
)

// AccountsHandler serves account administration.
type AccountsHandler struct {
	service *service.AccountService
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(accountService *service.AccountService) *AccountsHandler {
	return &AccountsHandler{service: accountService}
}

// List GET /users.
func (h *AccountsHandler) List(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	limit, offset := parsePage(c)
	filter := repository.AccountFilter{
		TeamID: optionalQuery(c, "team_id"),
		Limit:  limit,
		Offset: offset,
	}
	if status := optionalQuery(c, "staff_status"); status != nil {
		staffStatus := domain.StaffStatus(*status)
		filter.StaffStatus = &staffStatus
	}
	accounts, err := h.service.List(c.UserContext(), account, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": accountResponses(accounts)})
}

// SetAuthority PUT /users/:id/role.
func (h *AccountsHandler) SetAuthority(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.AuthorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.service.SetAuthority(c.UserContext(), account, c.Params("id"), req.Authority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": accountResponse(updated)})
}
