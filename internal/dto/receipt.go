package dto

import "github.com/shopspring/decimal"

// ExpenseItem is one expense as proposed by a preview and as submitted for
// confirmation. ExpenseDate is YYYY-MM-DD.
type ExpenseItem struct {
	Amount      decimal.Decimal `json:"amount" swaggertype:"number" example:"27.00"`
	Currency    string          `json:"currency" example:"CAD"`
	Description string          `json:"description" example:"Shawarma MIXTO"`
	Category    string          `json:"category" example:"FOOD"`
	ExpenseDate string          `json:"expense_date,omitempty" example:"2024-05-01"`
}

type ReceiptPreviewResponse struct {
	ImagePath     string        `json:"image_path"`
	ExtractedText string        `json:"extracted_text"`
	Items         []ExpenseItem `json:"items"`
}

type ReceiptConfirmRequest struct {
	ImagePath string        `json:"image_path"`
	Expenses  []ExpenseItem `json:"expenses"`
}

type ReceiptConfirmResponse struct {
	ImagePath    string            `json:"image_path"`
	CreatedItems []ExpenseResponse `json:"created_items"`
}
