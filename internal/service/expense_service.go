package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"ai-finance-manager/internal/dto"
	"ai-finance-manager/internal/models"
	"ai-finance-manager/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type ExpenseStore interface {
	ExpenseWriter
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Expense, error)
	List(ctx context.Context, userID uuid.UUID, filter repository.ExpenseFilter) ([]*models.Expense, error)
	Update(ctx context.Context, expense *models.Expense) error
	SoftDelete(ctx context.Context, userID, id uuid.UUID, at time.Time) error
}

// ListExpensesParams carries raw query parameters.
type ListExpensesParams struct {
	Limit    int
	Offset   int
	Category string
	From     string
	To       string
}

type ExpenseService struct {
	expenses ExpenseStore
	logger   *zap.Logger
	now      func() time.Time
}

func NewExpenseService(expenses ExpenseStore, logger *zap.Logger) *ExpenseService {
	return &ExpenseService{
		expenses: expenses,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *ExpenseService) List(ctx context.Context, userID uuid.UUID, params ListExpensesParams) (*dto.ExpenseListResponse, error) {
	filter, err := buildFilter(params)
	if err != nil {
		return nil, err
	}

	expenses, err := s.expenses.List(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	return &dto.ExpenseListResponse{
		Items:  toExpenseResponses(expenses),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// ListDeleted returns the soft-deleted expenses kept for auditing.
func (s *ExpenseService) ListDeleted(ctx context.Context, userID uuid.UUID) ([]dto.ExpenseResponse, error) {
	expenses, err := s.expenses.List(ctx, userID, repository.ExpenseFilter{Deleted: true})
	if err != nil {
		return nil, err
	}
	return toExpenseResponses(expenses), nil
}

func (s *ExpenseService) Get(ctx context.Context, userID, id uuid.UUID) (*dto.ExpenseResponse, error) {
	expense, err := s.expenses.GetByID(ctx, userID, id)
	if err != nil {
		return nil, notFound(err, ErrExpenseNotFound)
	}
	resp := toExpenseResponse(expense)
	return &resp, nil
}

// Create records a manual expense with no receipt attached.
func (s *ExpenseService) Create(ctx context.Context, userID uuid.UUID, item dto.ExpenseItem) (*dto.ExpenseResponse, error) {
	now := s.now().UTC()
	errs := &ValidationErrors{}
	fields := validateExpenseItem(-1, item, startOfDay(now), errs)
	if err := errs.orNil(); err != nil {
		return nil, err
	}

	expense := &models.Expense{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      fields.Amount,
		Currency:    fields.Currency,
		Description: fields.Description,
		Category:    fields.Category,
		ExpenseDate: fields.ExpenseDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.expenses.CreateBatch(ctx, []*models.Expense{expense}); err != nil {
		return nil, err
	}

	s.logger.Info("Expense created", zap.String("user_id", userID.String()), zap.String("expense_id", expense.ID.String()))
	resp := toExpenseResponse(expense)
	return &resp, nil
}

func (s *ExpenseService) Update(ctx context.Context, userID, id uuid.UUID, req *dto.UpdateExpenseRequest) (*dto.ExpenseResponse, error) {
	patch, err := buildPatch(req)
	if err != nil {
		return nil, err
	}

	expense, err := s.expenses.GetByID(ctx, userID, id)
	if err != nil {
		return nil, notFound(err, ErrExpenseNotFound)
	}

	if patch.Amount != nil {
		expense.Amount = *patch.Amount
	}
	if patch.Currency != nil {
		expense.Currency = *patch.Currency
	}
	if patch.Description != nil {
		expense.Description = *patch.Description
	}
	if patch.Category != nil {
		expense.Category = *patch.Category
	}
	if patch.ExpenseDate != nil {
		expense.ExpenseDate = *patch.ExpenseDate
	}
	expense.UpdatedAt = s.now().UTC()

	if err := s.expenses.Update(ctx, expense); err != nil {
		return nil, notFound(err, ErrExpenseNotFound)
	}
	resp := toExpenseResponse(expense)
	return &resp, nil
}

// Delete hides the expense from listings; the row itself stays for auditing.
func (s *ExpenseService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.expenses.SoftDelete(ctx, userID, id, s.now().UTC()); err != nil {
		return notFound(err, ErrExpenseNotFound)
	}
	s.logger.Info("Expense deleted", zap.String("user_id", userID.String()), zap.String("expense_id", id.String()))
	return nil
}

func buildPatch(req *dto.UpdateExpenseRequest) (models.ExpensePatch, error) {
	var patch models.ExpensePatch
	errs := &ValidationErrors{}

	if req.Amount != nil {
		if amount, ok := validateAmount(-1, "amount", *req.Amount, errs); ok {
			patch.Amount = &amount
		}
	}
	if req.Currency != nil {
		if currency, ok := validateCurrency(-1, "currency", *req.Currency, errs); ok {
			patch.Currency = &currency
		}
	}
	if req.Description != nil {
		if description, ok := validateText(-1, "description", *req.Description, maxDescriptionLength, errs); ok {
			patch.Description = &description
		}
	}
	if req.Category != nil {
		if category, ok := validateText(-1, "category", *req.Category, maxCategoryLength, errs); ok {
			patch.Category = &category
		}
	}
	if req.ExpenseDate != nil {
		if date, ok := validateDate(-1, "expense_date", *req.ExpenseDate, errs); ok {
			patch.ExpenseDate = &date
		}
	}

	if err := errs.orNil(); err != nil {
		return patch, err
	}
	if patch.Empty() {
		return patch, ErrNoFieldsToUpdate
	}
	return patch, nil
}

func buildFilter(params ListExpensesParams) (repository.ExpenseFilter, error) {
	errs := &ValidationErrors{}
	filter := repository.ExpenseFilter{Limit: defaultPageSize}

	switch {
	case params.Limit < 0:
		errs.Add(-1, "limit", "must not be negative")
	case params.Limit > 0:
		filter.Limit = uint64(min(params.Limit, maxPageSize))
	}
	if params.Offset < 0 {
		errs.Add(-1, "offset", "must not be negative")
	} else {
		filter.Offset = uint64(params.Offset)
	}
	if params.Category != "" {
		filter.Category = strings.TrimSpace(params.Category)
	}
	if params.From != "" {
		if from, ok := validateDate(-1, "from", params.From, errs); ok {
			filter.From = &from
		}
	}
	if params.To != "" {
		if to, ok := validateDate(-1, "to", params.To, errs); ok {
			filter.To = &to
		}
	}
	return filter, errs.orNil()
}

func toExpenseResponses(expenses []*models.Expense) []dto.ExpenseResponse {
	out := make([]dto.ExpenseResponse, len(expenses))
	for i, e := range expenses {
		out[i] = toExpenseResponse(e)
	}
	return out
}

func notFound(err, sentinel error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return sentinel
	}
	return err
}
