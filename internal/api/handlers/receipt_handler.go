package handlers

import (
	"io"
	"net/http"

	"ai-finance-manager/internal/dto"
	"ai-finance-manager/internal/pipeline"
	"ai-finance-manager/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ReceiptHandler struct {
	receiptService *service.ReceiptService
	logger         *zap.Logger
}

func NewReceiptHandler(receiptService *service.ReceiptService, logger *zap.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		receiptService: receiptService,
		logger:         logger,
	}
}

// Process godoc
// @Summary Preview expenses from a receipt photo
// @Description Normalizes the image, runs OCR, parses line items and suggests a category for each. Nothing is saved until confirmed.
// @Tags receipts
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Receipt image (JPEG or PNG)"
// @Security Bearer
// @Success 201 {object} dto.ReceiptPreviewResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 413 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/receipts/process [post]
func (h *ReceiptHandler) Process(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File is required",
		})
	}

	maxBytes := h.receiptService.MaxUploadBytes()
	if file.Size > maxBytes {
		return respondError(c, h.logger, pipeline.ErrOversize, "")
	}

	src, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to open file",
		})
	}
	defer src.Close()

	// One byte over the cap is enough for the normalizer to reject it.
	data, err := io.ReadAll(io.LimitReader(src, maxBytes+1))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to read file",
		})
	}

	resp, err := h.receiptService.Preview(c.Context(), pipeline.RawUpload{
		PrincipalID: userID,
		ContentType: file.Header.Get(fiber.HeaderContentType),
		Size:        file.Size,
		Data:        data,
	})
	if err != nil {
		return respondError(c, h.logger, err, "Failed to process receipt")
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Confirm godoc
// @Summary Save reviewed expenses
// @Description Validates every item and stores them all together, linked to the receipt image
// @Tags receipts
// @Accept json
// @Produce json
// @Param request body dto.ReceiptConfirmRequest true "Reviewed expenses"
// @Security Bearer
// @Success 201 {object} dto.ReceiptConfirmResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ValidationErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/receipts/confirm [post]
func (h *ReceiptHandler) Confirm(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.ReceiptConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	resp, err := h.receiptService.Confirm(c.Context(), userID, &req)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to save expenses")
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Image godoc
// @Summary Download a stored receipt image
// @Tags receipts
// @Produce octet-stream
// @Param path query string true "Image path returned by process"
// @Security Bearer
// @Success 200 {file} binary
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/receipts/image [get]
func (h *ReceiptHandler) Image(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	data, err := h.receiptService.ReadImage(userID, c.Query("path"))
	if err != nil {
		return respondError(c, h.logger, err, "Failed to read receipt image")
	}

	c.Set(fiber.HeaderContentType, http.DetectContentType(data))
	return c.Send(data)
}
