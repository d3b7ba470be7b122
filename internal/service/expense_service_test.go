package service

import (
	"context"
	"errors"
	"time"

	"ai-finance-manager/internal/dto"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

var _ = Describe("ExpenseService", func() {
	var (
		store  *fakeExpenseStore
		svc    *ExpenseService
		userID uuid.UUID
		ctx    context.Context
	)

	BeforeEach(func() {
		store = newFakeExpenseStore()
		svc = NewExpenseService(store, zap.NewNop())
		svc.now = func() time.Time { return time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC) }
		userID = uuid.New()
		ctx = context.Background()
	})

	create := func(amount, description string) *dto.ExpenseResponse {
		resp, err := svc.Create(ctx, userID, dto.ExpenseItem{
			Amount:      decimal.RequireFromString(amount),
			Currency:    "CAD",
			Description: description,
			Category:    "FOOD",
		})
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	It("creates a manual expense dated today without a receipt", func() {
		resp := create("12.40", "Lunch")
		Expect(resp.ExpenseDate).To(Equal("2024-05-17"))
		Expect(resp.ImagePath).To(BeNil())
		Expect(resp.Amount.String()).To(Equal("12.4"))
	})

	It("rejects invalid manual expenses", func() {
		_, err := svc.Create(ctx, userID, dto.ExpenseItem{Currency: "CAD", Description: "x", Category: "FOOD"})
		var verr *ValidationErrors
		Expect(errors.As(err, &verr)).To(BeTrue())
		Expect(verr.Fields).To(ContainElement(dto.FieldError{Index: -1, Field: "amount", Message: "must be greater than 0"}))
	})

	It("lists only the owner's live expenses", func() {
		create("1.00", "Mine")
		other := NewExpenseService(store, zap.NewNop())
		_, err := other.Create(ctx, uuid.New(), dto.ExpenseItem{Amount: decimal.NewFromInt(2), Currency: "CAD", Description: "Theirs", Category: "FOOD"})
		Expect(err).NotTo(HaveOccurred())

		list, err := svc.List(ctx, userID, ListExpensesParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(list.Items).To(HaveLen(1))
		Expect(list.Items[0].Description).To(Equal("Mine"))
		Expect(list.Limit).To(Equal(uint64(defaultPageSize)))
	})

	It("caps the page size and rejects negative paging", func() {
		list, err := svc.List(ctx, userID, ListExpensesParams{Limit: 10000})
		Expect(err).NotTo(HaveOccurred())
		Expect(list.Limit).To(Equal(uint64(maxPageSize)))

		_, err = svc.List(ctx, userID, ListExpensesParams{Offset: -1})
		Expect(err).To(BeAssignableToTypeOf(&ValidationErrors{}))
	})

	It("applies a partial update", func() {
		created := create("5.00", "Coffe")
		id := uuid.MustParse(created.ID)
		description := "Coffee"
		updated, err := svc.Update(ctx, userID, id, &dto.UpdateExpenseRequest{Description: &description})
		Expect(err).NotTo(HaveOccurred())
		Expect(updated.Description).To(Equal("Coffee"))
		Expect(updated.Amount.Equal(decimal.NewFromInt(5))).To(BeTrue())
	})

	It("refuses an empty update", func() {
		created := create("5.00", "Coffee")
		_, err := svc.Update(ctx, userID, uuid.MustParse(created.ID), &dto.UpdateExpenseRequest{})
		Expect(err).To(MatchError(ErrNoFieldsToUpdate))
	})

	It("does not let other users update or see an expense", func() {
		created := create("5.00", "Coffee")
		amount := decimal.NewFromInt(1)
		_, err := svc.Update(ctx, uuid.New(), uuid.MustParse(created.ID), &dto.UpdateExpenseRequest{Amount: &amount})
		Expect(err).To(MatchError(ErrExpenseNotFound))
		_, err = svc.Get(ctx, uuid.New(), uuid.MustParse(created.ID))
		Expect(err).To(MatchError(ErrExpenseNotFound))
	})

	It("soft deletes and keeps the record for auditing", func() {
		created := create("5.00", "Coffee")
		id := uuid.MustParse(created.ID)
		Expect(svc.Delete(ctx, userID, id)).To(Succeed())

		_, err := svc.Get(ctx, userID, id)
		Expect(err).To(MatchError(ErrExpenseNotFound))

		list, err := svc.List(ctx, userID, ListExpensesParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(list.Items).To(BeEmpty())

		deleted, err := svc.ListDeleted(ctx, userID)
		Expect(err).NotTo(HaveOccurred())
		Expect(deleted).To(HaveLen(1))
		Expect(deleted[0].DeletedAt).NotTo(BeNil())

		Expect(svc.Delete(ctx, userID, id)).To(MatchError(ErrExpenseNotFound))
	})
})
