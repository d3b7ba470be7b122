package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-finance-manager/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var expenseColumns = []string{
	"id", "user_id", "amount", "currency", "description", "category",
	"expense_date", "receipt_path", "created_at", "updated_at", "deleted_at",
}

// ExpenseFilter narrows a listing. Deleted selects the soft-deleted audit
// trail instead of live records.
type ExpenseFilter struct {
	Deleted  bool
	Category string
	From     *time.Time
	To       *time.Time
	Limit    uint64
	Offset   uint64
}

type ExpenseRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewExpenseRepository(db *pgxpool.Pool, logger *zap.Logger) *ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	return r.CreateBatch(ctx, []*models.Expense{expense})
}

// CreateBatch inserts all expenses in one transaction; on any failure none are kept.
func (r *ExpenseRepository) CreateBatch(ctx context.Context, expenses []*models.Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	sql, args, err := insertExpensesQuery(expenses).ToSql()
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			r.logger.Warn("Failed to roll back expense batch", zap.Error(err))
		}
	}()

	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() != int64(len(expenses)) {
		return fmt.Errorf("inserted %d of %d expenses", tag.RowsAffected(), len(expenses))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *ExpenseRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Expense, error) {
	sql, args, err := getExpenseQuery(userID, id).ToSql()
	if err != nil {
		return nil, err
	}

	expense, err := scanExpense(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, translate(err)
	}
	return expense, nil
}

func (r *ExpenseRepository) List(ctx context.Context, userID uuid.UUID, filter ExpenseFilter) ([]*models.Expense, error) {
	sql, args, err := listExpensesQuery(userID, filter).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]*models.Expense, 0)
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
	}
	return expenses, rows.Err()
}

// Update writes the mutable fields of a live expense.
func (r *ExpenseRepository) Update(ctx context.Context, expense *models.Expense) error {
	sql, args, err := updateExpenseQuery(expense).ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete stamps deleted_at; the row stays for auditing.
func (r *ExpenseRepository) SoftDelete(ctx context.Context, userID, id uuid.UUID, at time.Time) error {
	sql, args, err := softDeleteExpenseQuery(userID, id, at).ToSql()
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

// CategoryTotal is the live spend of one category in one currency.
type CategoryTotal struct {
	Category string
	Currency string
	Total    decimal.Decimal
}

// SumByCategory totals live expenses dated in [from, to).
func (r *ExpenseRepository) SumByCategory(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]CategoryTotal, error) {
	sql, args, err := sumByCategoryQuery(userID, from, to).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make([]CategoryTotal, 0)
	for rows.Next() {
		var t CategoryTotal
		if err := rows.Scan(&t.Category, &t.Currency, &t.Total); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// liveExpense scopes a statement to one non-deleted row owned by userID.
func liveExpense(userID, id uuid.UUID) squirrel.Eq {
	return squirrel.Eq{"id": id, "user_id": userID, "deleted_at": nil}
}

func getExpenseQuery(userID, id uuid.UUID) squirrel.SelectBuilder {
	return squirrel.Select(expenseColumns...).
		From("expenses").
		Where(liveExpense(userID, id)).
		PlaceholderFormat(squirrel.Dollar)
}

func updateExpenseQuery(expense *models.Expense) squirrel.UpdateBuilder {
	return squirrel.Update("expenses").
		Set("amount", expense.Amount).
		Set("currency", expense.Currency).
		Set("description", expense.Description).
		Set("category", expense.Category).
		Set("expense_date", expense.ExpenseDate).
		Set("updated_at", expense.UpdatedAt).
		Where(liveExpense(expense.UserID, expense.ID)).
		PlaceholderFormat(squirrel.Dollar)
}

func softDeleteExpenseQuery(userID, id uuid.UUID, at time.Time) squirrel.UpdateBuilder {
	return squirrel.Update("expenses").
		Set("deleted_at", at).
		Set("updated_at", at).
		Where(liveExpense(userID, id)).
		PlaceholderFormat(squirrel.Dollar)
}

func sumByCategoryQuery(userID uuid.UUID, from, to time.Time) squirrel.SelectBuilder {
	return squirrel.Select("category", "currency", "SUM(amount)").
		From("expenses").
		Where(squirrel.Eq{"user_id": userID, "deleted_at": nil}).
		Where(squirrel.GtOrEq{"expense_date": from}).
		Where(squirrel.Lt{"expense_date": to}).
		GroupBy("category", "currency").
		OrderBy("category").
		PlaceholderFormat(squirrel.Dollar)
}

func insertExpensesQuery(expenses []*models.Expense) squirrel.InsertBuilder {
	builder := squirrel.Insert("expenses").
		Columns("id", "user_id", "amount", "currency", "description", "category", "expense_date", "receipt_path", "created_at", "updated_at").
		PlaceholderFormat(squirrel.Dollar)

	for _, e := range expenses {
		builder = builder.Values(e.ID, e.UserID, e.Amount, e.Currency, e.Description, e.Category, e.ExpenseDate, e.ReceiptPath, e.CreatedAt, e.UpdatedAt)
	}
	return builder
}

func listExpensesQuery(userID uuid.UUID, filter ExpenseFilter) squirrel.SelectBuilder {
	query := squirrel.Select(expenseColumns...).
		From("expenses").
		Where(squirrel.Eq{"user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	if filter.Deleted {
		query = query.Where(squirrel.NotEq{"deleted_at": nil}).OrderBy("deleted_at DESC")
	} else {
		query = query.Where(squirrel.Eq{"deleted_at": nil}).OrderBy("expense_date DESC", "created_at DESC")
	}
	if filter.Category != "" {
		query = query.Where(squirrel.Eq{"category": filter.Category})
	}
	if filter.From != nil {
		query = query.Where(squirrel.GtOrEq{"expense_date": *filter.From})
	}
	if filter.To != nil {
		query = query.Where(squirrel.LtOrEq{"expense_date": *filter.To})
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	return query
}

func scanExpense(row pgx.Row) (*models.Expense, error) {
	var e models.Expense
	if err := row.Scan(
		&e.ID, &e.UserID, &e.Amount, &e.Currency, &e.Description, &e.Category,
		&e.ExpenseDate, &e.ReceiptPath, &e.CreatedAt, &e.UpdatedAt, &e.DeletedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}
