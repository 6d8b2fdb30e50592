package handlers

import (
	"royal-collector/internal/adapters/http/middleware"
	"royal-collector/internal/core/services"
	"royal-collector/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler handles dashboard endpoints
type DashboardHandler struct {
	dashboardService *services.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// GetDashboard returns the dashboard for the caller's role
// @Summary Dashboard
// @Description Case and money totals in the caller's scope, plus worker or system figures by role
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /dashboard [get]
func (h *DashboardHandler) GetDashboard(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	data, err := h.dashboardService.GetDashboard(c.Context(), p)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Dashboard retrieved successfully", data)
}

// DailyCollection returns payments collected per day
// @Summary Daily collection report
// @Description Payment totals and counts per day over the last N days, scoped by role
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param days query int false "Days to cover" default(7)
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /reports/daily-collection [get]
func (h *DashboardHandler) DailyCollection(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	report, err := h.dashboardService.DailyCollection(c.Context(), p, c.QueryInt("days", 0))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Report retrieved successfully", fiber.Map{
		"days": report,
	})
}
