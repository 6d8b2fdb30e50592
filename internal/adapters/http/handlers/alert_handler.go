package handlers

import (
	"royal-collector/internal/adapters/http/middleware"
	"royal-collector/internal/core/services"
	"royal-collector/internal/pkg/pagination"
	"royal-collector/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AlertHandler handles alert endpoints
type AlertHandler struct {
	alertService *services.AlertService
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(alertService *services.AlertService) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
	}
}

// ListAlerts lists alerts visible to the caller
// @Summary List alerts
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Router /alerts [get]
func (h *AlertHandler) ListAlerts(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c)
	result, err := h.alertService.ListAlerts(c.Context(), p, params.Page, params.Limit)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Alerts retrieved successfully", result)
}

// CreateAlert schedules an alert (Admin or team worker)
// @Summary Create alert
// @Tags Alerts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateAlertInput true "Alert"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /alerts [post]
func (h *AlertHandler) CreateAlert(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.CreateAlertInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	alert, err := h.alertService.CreateAlert(c.Context(), p, &input)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Created(c, "Alert created successfully", fiber.Map{
		"alert": alert,
	})
}

// StopAlert marks an alert as read (Admin or team worker)
// @Summary Stop alert
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Alert ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /alerts/{id}/stop [put]
func (h *AlertHandler) StopAlert(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid alert ID")
	}

	alert, err := h.alertService.StopAlert(c.Context(), p, id)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Alert stopped", fiber.Map{
		"alert": alert,
	})
}
