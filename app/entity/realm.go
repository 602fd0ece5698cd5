package entity

import (
	"database/sql"
	"time"
)

// Realm is a tenant scope. Sessions are always issued under exactly one realm.
// The HTTP surface treats realms as read-only; writes happen through the CLI.
type Realm struct {
	ID            uint64         `json:"id"`
	Name          string         `json:"name"`
	RedirectURL   string         `json:"redirectURL"`
	BackgroundURL sql.NullString `json:"backgroundURL"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}
