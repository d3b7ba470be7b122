package dto

import "github.com/shopspring/decimal"

type ExpenseResponse struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"number"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	ExpenseDate string          `json:"expense_date"`
	ImagePath   *string         `json:"image_path,omitempty"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
	DeletedAt   *string         `json:"deleted_at,omitempty"`
}

// UpdateExpenseRequest is a partial update; omitted fields keep their value.
type UpdateExpenseRequest struct {
	Amount      *decimal.Decimal `json:"amount,omitempty" swaggertype:"number"`
	Currency    *string          `json:"currency,omitempty"`
	Description *string          `json:"description,omitempty"`
	Category    *string          `json:"category,omitempty"`
	ExpenseDate *string          `json:"expense_date,omitempty"`
}

type ExpenseListResponse struct {
	Items  []ExpenseResponse `json:"items"`
	Limit  uint64            `json:"limit"`
	Offset uint64            `json:"offset"`
}
