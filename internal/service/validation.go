package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"ai-finance-manager/internal/dto"
	"ai-finance-manager/internal/models"

	"github.com/shopspring/decimal"
)

const (
	maxDescriptionLength = 255
	maxCategoryLength    = 50
)

var (
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	monthPattern    = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
	maxAmount       = decimal.RequireFromString("999999999999.99")
)

// expenseFields is a validated ExpenseItem.
type expenseFields struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	Category    string
	ExpenseDate time.Time
}

// validateExpenseItem checks one submitted item and records every problem
// under the given index. today fills a missing date.
func validateExpenseItem(index int, item dto.ExpenseItem, today time.Time, errs *ValidationErrors) expenseFields {
	var out expenseFields

	if amount, ok := validateAmount(index, "amount", item.Amount, errs); ok {
		out.Amount = amount
	}
	if currency, ok := validateCurrency(index, "currency", item.Currency, errs); ok {
		out.Currency = currency
	}
	if description, ok := validateText(index, "description", item.Description, maxDescriptionLength, errs); ok {
		out.Description = description
	}
	if category, ok := validateText(index, "category", item.Category, maxCategoryLength, errs); ok {
		out.Category = category
	}

	out.ExpenseDate = today
	if strings.TrimSpace(item.ExpenseDate) != "" {
		if date, ok := validateDate(index, "expense_date", item.ExpenseDate, errs); ok {
			out.ExpenseDate = date
		}
	}
	return out
}

func validateAmount(index int, field string, amount decimal.Decimal, errs *ValidationErrors) (decimal.Decimal, bool) {
	if !amount.IsPositive() {
		errs.Add(index, field, "must be greater than 0")
		return decimal.Decimal{}, false
	}
	if amount.GreaterThan(maxAmount) {
		errs.Add(index, field, "is too large")
		return decimal.Decimal{}, false
	}
	if !amount.Equal(amount.Round(2)) {
		errs.Add(index, field, "must have at most 2 decimal places")
		return decimal.Decimal{}, false
	}
	return amount, true
}

func validateCurrency(index int, field, currency string, errs *ValidationErrors) (string, bool) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if !currencyPattern.MatchString(currency) {
		errs.Add(index, field, "must be a 3-letter currency code")
		return "", false
	}
	return currency, true
}

func validateText(index int, field, value string, maxLen int, errs *ValidationErrors) (string, bool) {
	value = strings.TrimSpace(value)
	n := utf8.RuneCountInString(value)
	switch {
	case n == 0:
		errs.Add(index, field, "is required")
		return "", false
	case n > maxLen:
		errs.Add(index, field, "must be at most "+strconv.Itoa(maxLen)+" characters")
		return "", false
	}
	return value, true
}

func validateDate(index int, field, value string, errs *ValidationErrors) (time.Time, bool) {
	date, err := time.Parse(dto.DateLayout, strings.TrimSpace(value))
	if err != nil {
		errs.Add(index, field, "must be a date in YYYY-MM-DD format")
		return time.Time{}, false
	}
	return date, true
}

func validateMonth(index int, field, value string, errs *ValidationErrors) (string, bool) {
	value = strings.TrimSpace(value)
	if !monthPattern.MatchString(value) {
		errs.Add(index, field, "must be a month in YYYY-MM format")
		return "", false
	}
	return value, true
}

func validateCategory(index int, field, value string, errs *ValidationErrors) (string, bool) {
	category, ok := validateText(index, field, value, maxCategoryLength, errs)
	if !ok {
		return "", false
	}
	category = strings.ToUpper(category)
	if !models.Category(category).Valid() {
		errs.Add(index, field, "must be one of "+strings.Join(models.CategoryNames(), ", "))
		return "", false
	}
	return category, true
}

// startOfDay truncates to the calendar date in UTC.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
