package handlers

import (
	"ai-finance-manager/internal/dto"
	"ai-finance-manager/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BudgetHandler struct {
	budgetService *service.BudgetService
	logger        *zap.Logger
}

func NewBudgetHandler(budgetService *service.BudgetService, logger *zap.Logger) *BudgetHandler {
	return &BudgetHandler{
		budgetService: budgetService,
		logger:        logger,
	}
}

// ListBudgets godoc
// @Summary List budgets with spending
// @Tags budgets
// @Produce json
// @Param month query string false "Month (YYYY-MM)"
// @Security Bearer
// @Success 200 {array} dto.BudgetResponse
// @Failure 422 {object} dto.ValidationErrorResponse
// @Router /api/v1/budgets [get]
func (h *BudgetHandler) ListBudgets(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	resp, err := h.budgetService.List(c.Context(), userID, c.Query("month"))
	if err != nil {
		return respondError(c, h.logger, err, "Failed to list budgets")
	}

	return c.JSON(resp)
}

// UpsertBudget godoc
// @Summary Create or replace the budget for a month and category
// @Tags budgets
// @Accept json
// @Produce json
// @Param request body dto.BudgetRequest true "Budget"
// @Security Bearer
// @Success 200 {object} dto.BudgetResponse
// @Failure 422 {object} dto.ValidationErrorResponse
// @Router /api/v1/budgets [post]
func (h *BudgetHandler) UpsertBudget(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.BudgetRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	resp, err := h.budgetService.Upsert(c.Context(), userID, &req)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to save budget")
	}

	return c.JSON(resp)
}

// DeleteBudget godoc
// @Summary Delete budget
// @Tags budgets
// @Param id path string true "Budget ID"
// @Security Bearer
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/budgets/{id} [delete]
func (h *BudgetHandler) DeleteBudget(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c)
	}

	if err := h.budgetService.Delete(c.Context(), userID, id); err != nil {
		return respondError(c, h.logger, err, "Failed to delete budget")
	}

	return c.SendStatus(fiber.StatusNoContent)
}
