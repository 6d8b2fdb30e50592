package handlers

import (
	"strings"

	"royal-collector/internal/adapters/http/middleware"
	"royal-collector/internal/core/domain"
	"royal-collector/internal/core/services"
	"royal-collector/internal/pkg/pagination"
	"royal-collector/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// IdempotencyHeader carries the client's key for safely retrying a case create
const IdempotencyHeader = "Idempotency-Key"

// CaseHandler handles case endpoints
type CaseHandler struct {
	caseService *services.CaseService
}

// NewCaseHandler creates a new case handler
func NewCaseHandler(caseService *services.CaseService) *CaseHandler {
	return &CaseHandler{
		caseService: caseService,
	}
}

// ReminderRequest represents a manual reminder body
type ReminderRequest struct {
	Message string `json:"message"`
}

// CreateCase opens a case for a borrower
// @Summary Create case
// @Description Open a lending case. Repeating a request with the same Idempotency-Key returns the first result.
// @Tags Cases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Client retry key"
// @Param body body services.CreateCaseInput true "Case data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /cases [post]
func (h *CaseHandler) CreateCase(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.CreateCaseInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	input.RequestKey = strings.TrimSpace(c.Get(IdempotencyHeader))

	created, err := h.caseService.CreateCase(c.Context(), p, &input)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Created(c, "Case created successfully", fiber.Map{
		"case": created,
	})
}

// ListCases lists the cases visible to the caller
// @Summary List cases
// @Tags Cases
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param status query string false "Status filter"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /cases [get]
func (h *CaseHandler) ListCases(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c)
	result, err := h.caseService.ListCasesVisibleTo(c.Context(), p, &services.ListCasesInput{
		Page:   params.Page,
		Limit:  params.Limit,
		Status: domain.CaseStatus(c.Query("status")),
	})
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Cases retrieved successfully", result)
}

// GetCase returns one case
// @Summary Get case
// @Tags Cases
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /cases/{id} [get]
func (h *CaseHandler) GetCase(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid case ID")
	}

	found, err := h.caseService.GetCase(c.Context(), p, id)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Case retrieved successfully", fiber.Map{
		"case": found,
	})
}

// UpdateCaseStatus applies an administrative patch
// @Summary Update case status
// @Description Approve, reject, dispute or close a case, reassign its worker, or override its balance (Admin only)
// @Tags Cases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Param body body services.UpdateCaseInput true "Patch"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /cases/{id}/status [put]
func (h *CaseHandler) UpdateCaseStatus(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid case ID")
	}

	var input services.UpdateCaseInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	updated, err := h.caseService.UpdateCaseStatus(c.Context(), p, id, &input)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Case updated successfully", fiber.Map{
		"case": updated,
	})
}

// DeleteCase removes a case and its ledger
// @Summary Delete case
// @Tags Cases
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /cases/{id} [delete]
func (h *CaseHandler) DeleteCase(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid case ID")
	}

	if err := h.caseService.DeleteCase(c.Context(), p, id); err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Case deleted successfully", nil)
}

// SendReminder alerts the borrower of a case
// @Summary Send reminder
// @Tags Cases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Param body body ReminderRequest false "Custom message"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /cases/{id}/alert [post]
func (h *CaseHandler) SendReminder(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid case ID")
	}

	var req ReminderRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	if err := h.caseService.SendReminder(c.Context(), p, id, strings.TrimSpace(req.Message)); err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Reminder sent", nil)
}
