package handlers

import (
	"strconv"

	"royal-collector/internal/adapters/http/middleware"
	"royal-collector/internal/core/services"
	"royal-collector/internal/pkg/pagination"
	"royal-collector/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// TransactionHandler handles ledger endpoints
type TransactionHandler struct {
	ledgerService *services.LedgerService
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(ledgerService *services.LedgerService) *TransactionHandler {
	return &TransactionHandler{
		ledgerService: ledgerService,
	}
}

// RecordTransaction adds a payment or disbursement to a case
// @Summary Record transaction
// @Description A payment reduces the case balance and settles it at zero. Borrowers may submit a payment with proof.
// @Tags Transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.RecordTransactionInput true "Transaction"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /transactions [post]
func (h *TransactionHandler) RecordTransaction(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.RecordTransactionInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	tx, err := h.ledgerService.RecordTransaction(c.Context(), p, &input)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Created(c, "Transaction recorded successfully", fiber.Map{
		"transaction": tx,
	})
}

// ListTransactions lists transactions, for one case or the caller's whole scope
// @Summary List transactions
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param case_id query int false "Case ID"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /transactions [get]
func (h *TransactionHandler) ListTransactions(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c)
	input := &services.ListTransactionsInput{
		Page:  params.Page,
		Limit: params.Limit,
	}
	if raw := c.Query("case_id"); raw != "" {
		caseID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || caseID == 0 {
			return response.BadRequest(c, "Invalid case ID")
		}
		id := uint(caseID)
		input.CaseID = &id
	}

	result, err := h.ledgerService.ListTransactionsVisibleTo(c.Context(), p, input)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Transactions retrieved successfully", result)
}

// RevertTransaction deletes a transaction and restores the balance (Admin only)
// @Summary Revert transaction
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Transaction ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /transactions/{id} [delete]
func (h *TransactionHandler) RevertTransaction(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid transaction ID")
	}

	updated, err := h.ledgerService.RevertTransaction(c.Context(), p, id)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Transaction reverted successfully", fiber.Map{
		"case": updated,
	})
}

// VerifyTransaction marks a transaction as checked (Admin only)
// @Summary Verify transaction
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Transaction ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /transactions/{id}/verify [put]
func (h *TransactionHandler) VerifyTransaction(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid transaction ID")
	}

	tx, err := h.ledgerService.VerifyTransaction(c.Context(), p, id)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Transaction verified successfully", fiber.Map{
		"transaction": tx,
	})
}
