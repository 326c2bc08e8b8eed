// Package model defines the data structures used throughout the application.
package model

import (
	"strings"
	"time"
)

// Role is the access level attached to a user account and to every session
// token. The system knows exactly two roles; there is no role hierarchy and
// no per-permission granularity.
type Role string

const (
	// RoleStaff can list and inspect student records via the admin routes.
	RoleStaff Role = "staff"
	// RoleStudent can only read and write their own settings.
	RoleStudent Role = "student"
)

// ParseRole normalizes a role string from a request body or a store cell.
// Role cells in the store are entered by hand, so matching is
// case-insensitive ("Staff" and "staff" are the same role).
func ParseRole(s string) (Role, bool) {
	switch {
	case strings.EqualFold(s, string(RoleStaff)):
		return RoleStaff, true
	case strings.EqualFold(s, string(RoleStudent)):
		return RoleStudent, true
	default:
		return "", false
	}
}

// User represents one account row in the Users table of the external store.
//
// Accounts are provisioned out-of-band (someone adds a row to the sheet); the
// gateway only reads and updates existing rows, it never inserts users.
// UserID is the stable identity and is assumed unique across rows — the store
// has no constraint to enforce that, so on a duplicate the first matching row
// wins.
//
// PasswordHash is opaque to everything except the bcrypt verifier. It is
// excluded from JSON (json:"-") so no handler can leak it by encoding the
// struct directly.
type User struct {
	UserID       string     `json:"userId"`
	Role         Role       `json:"role"`
	DisplayName  string     `json:"displayName"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	SettingsJSON string     `json:"-"`
	MigratedAt   *time.Time `json:"migratedAt,omitempty"` // nil until the legacy hash migration touched this row
}

// AuditEntry is one append-only row in the Audit table. Entries are written
// for security-relevant events (password migration, for now) and never read
// back by this system.
type AuditEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
	EventKind string    `json:"eventKind"`
}
