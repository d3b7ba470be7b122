package service

import (
	"context"
	"time"

	"ai-finance-manager/internal/dto"
	"ai-finance-manager/internal/models"
	"ai-finance-manager/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type BudgetStore interface {
	List(ctx context.Context, userID uuid.UUID, month string) ([]*models.Budget, error)
	Upsert(ctx context.Context, budget *models.Budget) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// SpendingSource totals live expenses for budget tracking.
type SpendingSource interface {
	SumByCategory(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]repository.CategoryTotal, error)
}

type BudgetService struct {
	budgets  BudgetStore
	spending SpendingSource
	users    UserLookup
	logger   *zap.Logger
	now      func() time.Time
}

func NewBudgetService(budgets BudgetStore, spending SpendingSource, users UserLookup, logger *zap.Logger) *BudgetService {
	return &BudgetService{
		budgets:  budgets,
		spending: spending,
		users:    users,
		logger:   logger,
		now:      time.Now,
	}
}

// List returns budgets with the amount already spent in each month.
func (s *BudgetService) List(ctx context.Context, userID uuid.UUID, month string) ([]dto.BudgetResponse, error) {
	if month != "" {
		errs := &ValidationErrors{}
		validateMonth(-1, "month", month, errs)
		if err := errs.orNil(); err != nil {
			return nil, err
		}
	}

	budgets, err := s.budgets.List(ctx, userID, month)
	if err != nil {
		return nil, err
	}

	spent := make(map[string]map[spendKey]decimal.Decimal)
	out := make([]dto.BudgetResponse, len(budgets))
	for i, b := range budgets {
		totals, ok := spent[b.Month]
		if !ok {
			totals, err = s.monthTotals(ctx, userID, b.Month)
			if err != nil {
				return nil, err
			}
			spent[b.Month] = totals
		}
		out[i] = toBudgetResponse(b, totals[spendKey{category: b.Category, currency: b.Currency}])
	}
	return out, nil
}

// Upsert sets the limit for a month and category, replacing any previous one.
func (s *BudgetService) Upsert(ctx context.Context, userID uuid.UUID, req *dto.BudgetRequest) (*dto.BudgetResponse, error) {
	errs := &ValidationErrors{}
	month, _ := validateMonth(-1, "month", req.Month, errs)
	category, _ := validateCategory(-1, "category", req.Category, errs)
	amount, _ := validateAmount(-1, "amount", req.Amount, errs)

	currency := req.Currency
	if currency == "" {
		currency = s.defaultCurrency(ctx, userID)
	}
	currency, _ = validateCurrency(-1, "currency", currency, errs)

	if err := errs.orNil(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	budget := &models.Budget{
		ID:        uuid.New(),
		UserID:    userID,
		Month:     month,
		Category:  category,
		Amount:    amount,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.budgets.Upsert(ctx, budget); err != nil {
		return nil, err
	}

	totals, err := s.monthTotals(ctx, userID, budget.Month)
	if err != nil {
		return nil, err
	}
	resp := toBudgetResponse(budget, totals[spendKey{category: budget.Category, currency: budget.Currency}])
	return &resp, nil
}

func (s *BudgetService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.budgets.Delete(ctx, userID, id); err != nil {
		return notFound(err, ErrBudgetNotFound)
	}
	return nil
}

type spendKey struct {
	category string
	currency string
}

func (s *BudgetService) monthTotals(ctx context.Context, userID uuid.UUID, month string) (map[spendKey]decimal.Decimal, error) {
	from, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, err
	}
	rows, err := s.spending.SumByCategory(ctx, userID, from, from.AddDate(0, 1, 0))
	if err != nil {
		return nil, err
	}
	totals := make(map[spendKey]decimal.Decimal, len(rows))
	for _, r := range rows {
		totals[spendKey{category: r.Category, currency: r.Currency}] = r.Total
	}
	return totals, nil
}

func (s *BudgetService) defaultCurrency(ctx context.Context, userID uuid.UUID) string {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil || user.DefaultCurrency == "" {
		return "CAD"
	}
	return user.DefaultCurrency
}

func toBudgetResponse(b *models.Budget, spent decimal.Decimal) dto.BudgetResponse {
	return dto.BudgetResponse{
		ID:        b.ID.String(),
		Month:     b.Month,
		Category:  b.Category,
		Amount:    b.Amount,
		Currency:  b.Currency,
		Spent:     spent,
		CreatedAt: b.CreatedAt.Format(time.RFC3339),
		UpdatedAt: b.UpdatedAt.Format(time.RFC3339),
	}
}
