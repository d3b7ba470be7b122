package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"

	"ai-finance-manager/internal/dto"
	"ai-finance-manager/internal/pipeline"
	"ai-finance-manager/internal/service"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

var _ = Describe("respondError", func() {
	render := func(err error) (int, []byte) {
		app := fiber.New()
		app.Get("/", func(c *fiber.Ctx) error {
			return respondError(c, zap.NewNop(), err, "Something failed")
		})
		resp, testErr := app.Test(httptest.NewRequest("GET", "/", nil))
		Expect(testErr).NotTo(HaveOccurred())
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, body
	}

	DescribeTable("status codes",
		func(err error, status int) {
			got, _ := render(err)
			Expect(got).To(Equal(status))
		},
		Entry("decode", pipeline.ErrDecode, fiber.StatusBadRequest),
		Entry("unsupported type", pipeline.ErrUnsupportedType, fiber.StatusBadRequest),
		Entry("empty image", pipeline.ErrEmptyImage, fiber.StatusBadRequest),
		Entry("oversize", pipeline.ErrOversize, fiber.StatusRequestEntityTooLarge),
		Entry("extraction unavailable", fmt.Errorf("tesseract: %w", pipeline.ErrExtractionUnavailable), fiber.StatusServiceUnavailable),
		Entry("invalid path", service.ErrInvalidImagePath, fiber.StatusBadRequest),
		Entry("ownership", service.ErrOwnership, fiber.StatusForbidden),
		Entry("receipt not found", service.ErrReceiptNotFound, fiber.StatusNotFound),
		Entry("persistence", service.ErrPersistence, fiber.StatusInternalServerError),
		Entry("expense not found", service.ErrExpenseNotFound, fiber.StatusNotFound),
		Entry("budget not found", service.ErrBudgetNotFound, fiber.StatusNotFound),
		Entry("no fields", service.ErrNoFieldsToUpdate, fiber.StatusBadRequest),
		Entry("user exists", service.ErrUserExists, fiber.StatusConflict),
		Entry("bad credentials", service.ErrInvalidCredentials, fiber.StatusUnauthorized),
		Entry("unknown", errors.New("boom"), fiber.StatusInternalServerError),
	)

	It("lists every field failure for validation errors", func() {
		verr := &service.ValidationErrors{}
		verr.Add(0, "amount", "must be greater than 0")
		verr.Add(2, "currency", "must be a 3-letter code")

		status, body := render(verr)
		Expect(status).To(Equal(fiber.StatusUnprocessableEntity))

		var resp dto.ValidationErrorResponse
		Expect(json.Unmarshal(body, &resp)).To(Succeed())
		Expect(resp.Details).To(HaveLen(2))
		Expect(resp.Details[1]).To(Equal(dto.FieldError{Index: 2, Field: "currency", Message: "must be a 3-letter code"}))
	})

	It("hides internal error text behind the fallback message", func() {
		_, body := render(errors.New("pq: password authentication failed"))
		Expect(string(body)).To(MatchJSON(`{"error":"Something failed"}`))
	})
})
