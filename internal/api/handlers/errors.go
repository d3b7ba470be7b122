package handlers

import (
	"errors"

	"ai-finance-manager/internal/pipeline"
	"ai-finance-manager/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// respondError maps domain errors onto HTTP responses. Anything unknown is
// logged and reported as fallback with a 500.
func respondError(c *fiber.Ctx, logger *zap.Logger, err error, fallback string) error {
	var verr *service.ValidationErrors
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": verr.Fields,
		})
	}

	status, message := fiber.StatusInternalServerError, fallback
	switch {
	case errors.Is(err, pipeline.ErrOversize):
		status, message = fiber.StatusRequestEntityTooLarge, "Image too large"
	case errors.Is(err, pipeline.ErrUnsupportedType):
		status, message = fiber.StatusBadRequest, "Unsupported image type, use JPEG or PNG"
	case errors.Is(err, pipeline.ErrEmptyImage):
		status, message = fiber.StatusBadRequest, "Empty file"
	case errors.Is(err, pipeline.ErrDecode):
		status, message = fiber.StatusBadRequest, "Invalid image"
	case errors.Is(err, pipeline.ErrExtractionUnavailable):
		status, message = fiber.StatusServiceUnavailable, "Text extraction is unavailable"
	case errors.Is(err, service.ErrInvalidImagePath):
		status, message = fiber.StatusBadRequest, "Invalid image path"
	case errors.Is(err, service.ErrOwnership):
		status, message = fiber.StatusForbidden, "Image does not belong to the current user"
	case errors.Is(err, service.ErrReceiptNotFound):
		status, message = fiber.StatusNotFound, "Receipt image not found"
	case errors.Is(err, service.ErrExpenseNotFound):
		status, message = fiber.StatusNotFound, "Expense not found"
	case errors.Is(err, service.ErrBudgetNotFound):
		status, message = fiber.StatusNotFound, "Budget not found"
	case errors.Is(err, service.ErrUserNotFound):
		status, message = fiber.StatusNotFound, "User not found"
	case errors.Is(err, service.ErrNoFieldsToUpdate):
		status, message = fiber.StatusBadRequest, "No fields to update"
	case errors.Is(err, service.ErrUserExists):
		status, message = fiber.StatusConflict, "User already exists"
	case errors.Is(err, service.ErrInvalidCredentials):
		status, message = fiber.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, service.ErrPersistence):
		status, message = fiber.StatusInternalServerError, "Failed to save expenses"
	}

	if status >= fiber.StatusInternalServerError {
		logger.Error(message, zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

func getUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userIDStr, ok := c.Locals("userID").(string)
	if !ok {
		return uuid.Nil, fiber.ErrUnauthorized
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, err
	}

	return userID, nil
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Unauthorized",
	})
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Invalid request body",
	})
}
