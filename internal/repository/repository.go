package repository

import (
	"context"

	"github.com/sakif/classroom-portal/internal/model"
)

// UserRepository is the typed view over the Users table of the external
// store. Implementations resolve columns by header name, never by position —
// the store has no schema, and column order is not guaranteed stable.
//
// The gateway never inserts users; rows are provisioned out-of-band.
type UserRepository interface {
	// FindByUserID returns the first row matching id (case-sensitive).
	// Returns an error wrapping apperror.ErrNotFound when no row matches.
	FindByUserID(ctx context.Context, id string) (*model.User, error)

	// FindAll returns every user row. Used by the migration tool only.
	FindAll(ctx context.Context) ([]model.User, error)

	// FindAllByRole returns the rows whose role matches, case-insensitively.
	FindAllByRole(ctx context.Context, role model.Role) ([]model.User, error)

	// UpdateSettings overwrites the settings column of the user's row.
	// Errors wrap apperror.ErrNotFound, apperror.ErrConflict (the row changed
	// between read and write), or apperror.ErrStore.
	UpdateSettings(ctx context.Context, id string, settingsJSON string) error

	// MigratePasswordHash replaces the password column with newHash and
	// stamps migratedAt. Invoked by the migration tool, never by handlers.
	MigratePasswordHash(ctx context.Context, id string, newHash string) error
}

// AuditLog appends security-relevant events to the append-only Audit table.
// Entries are write-only from this system's perspective. Call sites treat
// Append as best-effort: a failed audit write is logged and must never abort
// the operation it accompanies.
type AuditLog interface {
	Append(ctx context.Context, userID string, eventKind string) error
}
