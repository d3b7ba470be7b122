package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expense is the durable record created when a receipt preview is confirmed.
type Expense struct {
	ID          uuid.UUID       `db:"id"`
	UserID      uuid.UUID       `db:"user_id"`
	Amount      decimal.Decimal `db:"amount"`
	Currency    string          `db:"currency"`
	Description string          `db:"description"`
	Category    string          `db:"category"`
	ExpenseDate time.Time       `db:"expense_date"`
	ReceiptPath *string         `db:"receipt_path"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
	DeletedAt   *time.Time      `db:"deleted_at"`
}

func (e *Expense) Deleted() bool {
	return e.DeletedAt != nil
}

// ExpensePatch holds the fields of a partial update; nil means unchanged.
type ExpensePatch struct {
	Amount      *decimal.Decimal
	Currency    *string
	Description *string
	Category    *string
	ExpenseDate *time.Time
}

func (p ExpensePatch) Empty() bool {
	return p.Amount == nil && p.Currency == nil && p.Description == nil && p.Category == nil && p.ExpenseDate == nil
}
