package handlers

import (
	"ai-finance-manager/internal/dto"
	"ai-finance-manager/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ExpenseHandler struct {
	expenseService *service.ExpenseService
	logger         *zap.Logger
}

func NewExpenseHandler(expenseService *service.ExpenseService, logger *zap.Logger) *ExpenseHandler {
	return &ExpenseHandler{
		expenseService: expenseService,
		logger:         logger,
	}
}

// ListExpenses godoc
// @Summary List expenses
// @Description Active expenses of the current user, newest first
// @Tags expenses
// @Produce json
// @Param limit query int false "Page size (default 50, max 200)"
// @Param offset query int false "Offset"
// @Param category query string false "Category filter"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Security Bearer
// @Success 200 {object} dto.ExpenseListResponse
// @Failure 422 {object} dto.ValidationErrorResponse
// @Router /api/v1/expenses [get]
func (h *ExpenseHandler) ListExpenses(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	resp, err := h.expenseService.List(c.Context(), userID, service.ListExpensesParams{
		Limit:    c.QueryInt("limit", 0),
		Offset:   c.QueryInt("offset", 0),
		Category: c.Query("category"),
		From:     c.Query("from"),
		To:       c.Query("to"),
	})
	if err != nil {
		return respondError(c, h.logger, err, "Failed to list expenses")
	}

	return c.JSON(resp)
}

// ListDeleted godoc
// @Summary List soft-deleted expenses
// @Tags expenses
// @Produce json
// @Security Bearer
// @Success 200 {array} dto.ExpenseResponse
// @Router /api/v1/expenses/deleted [get]
func (h *ExpenseHandler) ListDeleted(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	resp, err := h.expenseService.ListDeleted(c.Context(), userID)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to list deleted expenses")
	}

	return c.JSON(resp)
}

// GetExpense godoc
// @Summary Get expense
// @Tags expenses
// @Produce json
// @Param id path string true "Expense ID"
// @Security Bearer
// @Success 200 {object} dto.ExpenseResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/expenses/{id} [get]
func (h *ExpenseHandler) GetExpense(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c)
	}

	resp, err := h.expenseService.Get(c.Context(), userID, id)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to get expense")
	}

	return c.JSON(resp)
}

// CreateExpense godoc
// @Summary Create a manual expense
// @Tags expenses
// @Accept json
// @Produce json
// @Param request body dto.ExpenseItem true "Expense"
// @Security Bearer
// @Success 201 {object} dto.ExpenseResponse
// @Failure 422 {object} dto.ValidationErrorResponse
// @Router /api/v1/expenses [post]
func (h *ExpenseHandler) CreateExpense(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.ExpenseItem
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	resp, err := h.expenseService.Create(c.Context(), userID, req)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to create expense")
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// UpdateExpense godoc
// @Summary Update expense fields
// @Tags expenses
// @Accept json
// @Produce json
// @Param id path string true "Expense ID"
// @Param request body dto.UpdateExpenseRequest true "Fields to change"
// @Security Bearer
// @Success 200 {object} dto.ExpenseResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ValidationErrorResponse
// @Router /api/v1/expenses/{id} [patch]
func (h *ExpenseHandler) UpdateExpense(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c)
	}

	var req dto.UpdateExpenseRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	resp, err := h.expenseService.Update(c.Context(), userID, id, &req)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to update expense")
	}

	return c.JSON(resp)
}

// DeleteExpense godoc
// @Summary Soft-delete expense
// @Tags expenses
// @Param id path string true "Expense ID"
// @Security Bearer
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/expenses/{id} [delete]
func (h *ExpenseHandler) DeleteExpense(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c)
	}

	if err := h.expenseService.Delete(c.Context(), userID, id); err != nil {
		return respondError(c, h.logger, err, "Failed to delete expense")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func invalidID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Invalid id",
	})
}
