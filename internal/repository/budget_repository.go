package repository

import (
	"context"
	"strings"

	"ai-finance-manager/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var budgetColumns = []string{"id", "user_id", "month", "category", "amount", "currency", "created_at", "updated_at"}

type BudgetRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewBudgetRepository(db *pgxpool.Pool, logger *zap.Logger) *BudgetRepository {
	return &BudgetRepository{
		db:     db,
		logger: logger,
	}
}

func (r *BudgetRepository) List(ctx context.Context, userID uuid.UUID, month string) ([]*models.Budget, error) {
	query := squirrel.Select(budgetColumns...).
		From("budgets").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("month DESC", "category").
		PlaceholderFormat(squirrel.Dollar)
	if month != "" {
		query = query.Where(squirrel.Eq{"month": month})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	budgets := make([]*models.Budget, 0)
	for rows.Next() {
		var b models.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.Month, &b.Category, &b.Amount, &b.Currency, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		budgets = append(budgets, &b)
	}
	return budgets, rows.Err()
}

// Upsert creates the budget or replaces the amount of the existing one for
// the same month and category. The stored row is written back into budget.
func (r *BudgetRepository) Upsert(ctx context.Context, budget *models.Budget) error {
	sql, args, err := upsertBudgetQuery(budget).ToSql()
	if err != nil {
		return err
	}

	return translate(r.db.QueryRow(ctx, sql, args...).Scan(
		&budget.ID, &budget.UserID, &budget.Month, &budget.Category,
		&budget.Amount, &budget.Currency, &budget.CreatedAt, &budget.UpdatedAt,
	))
}

func (r *BudgetRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	sql, args, err := squirrel.Delete("budgets").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func upsertBudgetQuery(b *models.Budget) squirrel.InsertBuilder {
	return squirrel.Insert("budgets").
		Columns("id", "user_id", "month", "category", "amount", "currency", "created_at", "updated_at").
		Values(b.ID, b.UserID, b.Month, b.Category, b.Amount, b.Currency, b.CreatedAt, b.UpdatedAt).
		Suffix("ON CONFLICT (user_id, month, category) DO UPDATE SET amount = EXCLUDED.amount, currency = EXCLUDED.currency, updated_at = EXCLUDED.updated_at").
		Suffix("RETURNING " + strings.Join(budgetColumns, ", ")).
		PlaceholderFormat(squirrel.Dollar)
}
