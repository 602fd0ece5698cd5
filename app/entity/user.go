package entity

import (
	"database/sql"
	"time"
)

// User is the identity record. The password hash and any outstanding
// proofing codes never leave the service in JSON responses.
type User struct {
	ID                      uint64         `json:"id"`
	Email                   string         `json:"email"`
	PasswordHash            string         `json:"-"`
	FirstName               string         `json:"firstName"`
	LastName                string         `json:"lastName"`
	EmailConfirmed          bool           `json:"emailConfirmed"`
	EmailConfirmationCode   sql.NullString `json:"-"`
	EmailConfirmationSentAt sql.NullTime   `json:"-"`
	RecoverPassCode         sql.NullString `json:"-"`
	RecoverPassSentAt       sql.NullTime   `json:"-"`
	CreatedAt               time.Time      `json:"createdAt"`
	UpdatedAt               time.Time      `json:"updatedAt"`
}
