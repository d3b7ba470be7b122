package service

import (
	"errors"
	"fmt"
	"strings"

	"ai-finance-manager/internal/dto"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")

	ErrInvalidImagePath = errors.New("invalid image path")
	ErrOwnership        = errors.New("image belongs to another user")
	ErrReceiptNotFound  = errors.New("receipt image not found")
	ErrPersistence      = errors.New("failed to save expenses")

	ErrExpenseNotFound  = errors.New("expense not found")
	ErrBudgetNotFound   = errors.New("budget not found")
	ErrNoFieldsToUpdate = errors.New("no fields to update")
)

// ValidationErrors collects every field problem found in a request so the
// client can fix them all at once.
type ValidationErrors struct {
	Fields []dto.FieldError
}

func (v *ValidationErrors) Add(index int, field, message string) {
	v.Fields = append(v.Fields, dto.FieldError{Index: index, Field: field, Message: message})
}

func (v *ValidationErrors) Empty() bool {
	return v == nil || len(v.Fields) == 0
}

func (v *ValidationErrors) Error() string {
	parts := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		if f.Index >= 0 {
			parts = append(parts, fmt.Sprintf("item %d: %s %s", f.Index, f.Field, f.Message))
		} else {
			parts = append(parts, fmt.Sprintf("%s %s", f.Field, f.Message))
		}
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// orNil keeps a typed nil *ValidationErrors from turning into a non-nil error.
func (v *ValidationErrors) orNil() error {
	if v.Empty() {
		return nil
	}
	return v
}
