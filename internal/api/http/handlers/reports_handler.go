package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-service/internal/api/dto"
	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/service"
	apperrors "github.com/spec-kit/staff-service/pkg/util/errorutil"
)

// ReportsHandler serves player reports.
type ReportsHandler struct {
	service *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{service: reportService}
}

// Create POST /reports.
func (h *ReportsHandler) Create(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	report, err := h.service.Create(c.UserContext(), account, service.ReportCreateInput{
		ReportedPlayer: req.ReportedPlayer,
		Category:       req.Category,
		Description:    req.Description,
		Evidence:       req.Evidence,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": reportResponse(report)})
}

// List GET /reports.
func (h *ReportsHandler) List(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	var filter service.ReportListFilter
	if status := c.Query("status"); status != "" {
		s := domain.ReportStatus(status)
		filter.Status = &s
	}
	filter.Limit, filter.Offset = parsePage(c)

	reports, err := h.service.List(c.UserContext(), account, filter)
	if err != nil {
		return err
	}
	items := make([]dto.ReportResponse, 0, len(reports))
	for i := range reports {
		items = append(items, reportResponse(&reports[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /reports/:id.
func (h *ReportsHandler) Get(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	report, err := h.service.Get(c.UserContext(), account, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reportResponse(report)})
}

// Update PATCH /reports/:id.
func (h *ReportsHandler) Update(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.ReportUpdateInput{Status: req.Status, AdminNotes: req.AdminNotes}
	if req.Punishment != nil {
		input.Punishment = &service.PunishmentInput{
			Type:          req.Punishment.Type,
			DurationHours: req.Punishment.DurationHours,
			Reason:        req.Punishment.Reason,
		}
	}
	report, err := h.service.Update(c.UserContext(), account, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reportResponse(report)})
}

func reportResponse(r *domain.Report) dto.ReportResponse {
	return dto.ReportResponse{
		ID:             r.ID,
		ReporterID:     r.ReporterID,
		ReporterName:   r.ReporterName,
		ReportedPlayer: r.ReportedPlayer,
		Category:       r.Category,
		Description:    r.Description,
		Evidence:       r.Evidence,
		Status:         r.Status,
		Punishment:     r.Punishment,
		AdminNotes:     r.AdminNotes,
		HandledBy:      r.HandledBy,
		HandledAt:      r.HandledAt,
		CreatedAt:      r.CreatedAt,
	}
}
