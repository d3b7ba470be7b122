package dto

import "github.com/shopspring/decimal"

type BudgetRequest struct {
	Month    string          `json:"month" example:"2024-05"`
	Category string          `json:"category" example:"FOOD"`
	Amount   decimal.Decimal `json:"amount" swaggertype:"number" example:"300"`
	Currency string          `json:"currency,omitempty" example:"CAD"`
}

type BudgetResponse struct {
	ID        string          `json:"id"`
	Month     string          `json:"month"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount" swaggertype:"number"`
	Currency  string          `json:"currency"`
	Spent     decimal.Decimal `json:"spent" swaggertype:"number"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}
