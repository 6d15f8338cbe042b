package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-service/internal/service"
)

// StatsHandler serves dashboard counters.
type StatsHandler struct {
	service *service.StatsService
}

// NewStatsHandler constructs handler.
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{service: statsService}
}

// Stats GET /stats.
func (h *StatsHandler) Stats(c *fiber.Ctx) error {
	account, err := actor(c)
	if err != nil {
		return err
	}
	stats, err := h.service.Stats(c.UserContext(), account)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}
