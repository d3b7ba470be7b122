package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID              uuid.UUID  `db:"id"`
	Username        string     `db:"username"`
	Email           string     `db:"email"`
	Password        string     `db:"password"`
	DefaultCurrency string     `db:"default_currency"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
	DeletedAt       *time.Time `db:"deleted_at"`
}

// SupportedUserCurrencies are the currencies a user may pick as default.
var SupportedUserCurrencies = []string{"CAD", "USD", "COP"}
