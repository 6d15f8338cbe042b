package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-service/internal/api/dto"
	"github.com/spec-kit/staff-service/internal/auth"
	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/service"
	apperrors "github.com/spec-kit/staff-service/pkg/util/errorutil"
)

// ApplicationsHandler serves application forms and submissions.
type ApplicationsHandler struct {
	service *service.ApplicationService
}

// NewApplicationsHandler constructs handler.
func NewApplicationsHandler(applicationService *service.ApplicationService) *ApplicationsHandler {
	return &ApplicationsHandler{service: applicationService}
}

// ListTypes GET /application-types. Staff admins may pass include_inactive=true.
func (h *ApplicationsHandler) ListTypes(c *fiber.Ctx) error {
	includeInactive := false
	if principal, ok := auth.PrincipalFromContext(c); ok && principal.Authority().AtLeast(domain.AuthorityStaffAdmin) {
		includeInactive = parseBoolQuery(c, "include_inactive", false)
	}
	types, err := h.service.ListTypes(c.UserContext(), includeInactive)
	if err != nil {
		return err
	}
	items := make([]dto.ApplicationTypeResponse, 0, len(types))
	for i := range types {
		items = append(items, applicationTypeResponse(&types[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetType GET /application-types/:id.
func (h *ApplicationsHandler) GetType(c *fiber.Ctx) error {
	appType, err := h.service.GetType(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": applicationTypeResponse(appType)})
}

// CreateType POST /application-types.
func (h *ApplicationsHandler) CreateType(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.ApplicationTypeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	appType, err := h.service.CreateType(c.UserContext(), account, typeInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": applicationTypeResponse(appType)})
}

// UpdateType PUT /application-types/:id.
func (h *ApplicationsHandler) UpdateType(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.ApplicationTypeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	appType, err := h.service.UpdateType(c.UserContext(), account, c.Params("id"), typeInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": applicationTypeResponse(appType)})
}

// DeleteType DELETE /application-types/:id.
func (h *ApplicationsHandler) DeleteType(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteType(c.UserContext(), account, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Create POST /applications.
func (h *ApplicationsHandler) Create(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.CreateApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TypeID == "" {
		return apperrors.NewValidationError("type_id required", nil)
	}
	app, err := h.service.Create(c.UserContext(), account, req.TypeID, req.Answers)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": applicationResponse(app)})
}

// List GET /applications.
func (h *ApplicationsHandler) List(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	filter := service.ApplicationListFilter{
		TypeID: optionalQuery(c, "type_id"),
		Search: optionalQuery(c, "q"),
	}
	if status := c.Query("status"); status != "" {
		s := domain.ApplicationStatus(status)
		filter.Status = &s
	}
	filter.Limit, filter.Offset = parsePage(c)

	apps, err := h.service.List(c.UserContext(), account, filter)
	if err != nil {
		return err
	}
	items := make([]dto.ApplicationResponse, 0, len(apps))
	for i := range apps {
		items = append(items, applicationResponse(&apps[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /applications/:id.
func (h *ApplicationsHandler) Get(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	app, err := h.service.Get(c.UserContext(), account, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": applicationResponse(app)})
}

// Review POST /applications/:id/review.
func (h *ApplicationsHandler) Review(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.ReviewApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	app, err := h.service.Review(c.UserContext(), account, c.Params("id"), req.Status, req.TeamID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": applicationResponse(app)})
}

func typeInput(req dto.ApplicationTypeRequest) service.ApplicationTypeInput {
	return service.ApplicationTypeInput{
		Name:        req.Name,
		Description: req.Description,
		Kind:        req.Kind,
		Questions:   req.Questions,
		Active:      req.Active,
	}
}

func applicationTypeResponse(t *domain.ApplicationType) dto.ApplicationTypeResponse {
	return dto.ApplicationTypeResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Kind:        t.Kind,
		Questions:   t.Questions,
		Active:      t.Active,
		CreatedAt:   t.CreatedAt,
	}
}

func applicationResponse(app *domain.Application) dto.ApplicationResponse {
	return dto.ApplicationResponse{
		ID:             app.ID,
		ApplicantID:    app.ApplicantID,
		ApplicantName:  app.ApplicantName,
		TypeID:         app.TypeID,
		TypeName:       app.TypeName,
		TypeKind:       app.TypeKind,
		Status:         app.Status,
		Answers:        app.Answers,
		SubmittedAt:    app.SubmittedAt,
		ReviewedBy:     app.ReviewedBy,
		ReviewedAt:     app.ReviewedAt,
		AssignedTeamID: app.AssignedTeamID,
	}
}
