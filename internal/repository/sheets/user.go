package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/classroom-portal/internal/apperror"
	"github.com/sakif/classroom-portal/internal/model"
	"github.com/sakif/classroom-portal/internal/repository"
)

// compile-time checks that *Repository implements the repository interfaces
var (
	_ repository.UserRepository = (*Repository)(nil)
	_ repository.AuditLog       = (*Repository)(nil)
)

// The Users sheet is expected to carry these headers (any order, any casing).
const (
	colUserID       = "userid"
	colRole         = "role"
	colDisplayName  = "displayname"
	colEmail        = "email"
	colPasswordHash = "passwordhash"
	colSettingsJSON = "settingsjson"
	colMigratedAt   = "migratedat"
)

// userTable is one full read of the Users sheet: the header-name→index map
// plus the data rows. Everything downstream of this type works with named
// columns; the stringly-typed [][]any never leaks past this file.
type userTable struct {
	cols map[string]int
	rows [][]any
}

// loadUsers fetches the entire Users sheet and resolves the column map.
// Fetched fresh on every call — the sheet is edited by hand between requests
// and columns may have moved.
func (r *Repository) loadUsers(ctx context.Context) (*userTable, error) {
	values, err := r.api.get(ctx, usersSheet)
	if err != nil {
		return nil, apperror.Store("reading users table", err)
	}
	if len(values) == 0 {
		return nil, apperror.Store("reading users table", fmt.Errorf("sheet %q has no header row", usersSheet))
	}

	cols := make(map[string]int, len(values[0]))
	for i, cell := range values[0] {
		name := strings.ToLower(strings.TrimSpace(cellString(cell)))
		if name == "" {
			continue
		}
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}

	for _, required := range []string{colUserID, colRole, colPasswordHash} {
		if _, ok := cols[required]; !ok {
			return nil, apperror.Store("reading users table",
				fmt.Errorf("sheet %q is missing required column %q", usersSheet, required))
		}
	}

	return &userTable{cols: cols, rows: values[1:]}, nil
}

// cell returns the named column of row as a string, or "" when the row is
// shorter than the column index (the API trims trailing blank cells).
func (t *userTable) cell(row []any, name string) string {
	idx, ok := t.cols[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return cellString(row[idx])
}

// user converts one data row into a typed record.
func (t *userTable) user(row []any) model.User {
	u := model.User{
		UserID:       t.cell(row, colUserID),
		DisplayName:  t.cell(row, colDisplayName),
		Email:        t.cell(row, colEmail),
		PasswordHash: t.cell(row, colPasswordHash),
		SettingsJSON: t.cell(row, colSettingsJSON),
	}
	if role, ok := model.ParseRole(t.cell(row, colRole)); ok {
		u.Role = role
	}
	if raw := t.cell(row, colMigratedAt); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			u.MigratedAt = &ts
		}
	}
	return u
}

// findRow locates the first data row whose userId matches, case-sensitively.
// Returns the zero-based data index. Duplicate ids are undefined behavior per
// the data model; first match wins.
func (t *userTable) findRow(id string) (int, bool) {
	for i, row := range t.rows {
		if t.cell(row, colUserID) == id {
			return i, true
		}
	}
	return -1, false
}

// sheetRow converts a zero-based data index into a 1-based sheet row number
// (header row is row 1).
func sheetRow(dataIdx int) int {
	return dataIdx + 2
}

// FindByUserID fetches the user record for id.
func (r *Repository) FindByUserID(ctx context.Context, id string) (*model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	table, err := r.loadUsers(ctx)
	if err != nil {
		return nil, err
	}

	idx, ok := table.findRow(id)
	if !ok {
		return nil, apperror.NotFound("user", id)
	}

	u := table.user(table.rows[idx])
	return &u, nil
}

// FindAll returns every user row. Only the migration tool calls this.
func (r *Repository) FindAll(ctx context.Context) ([]model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	table, err := r.loadUsers(ctx)
	if err != nil {
		return nil, err
	}

	users := make([]model.User, 0, len(table.rows))
	for _, row := range table.rows {
		users = append(users, table.user(row))
	}
	return users, nil
}

// FindAllByRole filters rows whose role column matches, case-insensitively.
func (r *Repository) FindAllByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	table, err := r.loadUsers(ctx)
	if err != nil {
		return nil, err
	}

	var users []model.User
	for _, row := range table.rows {
		if strings.EqualFold(table.cell(row, colRole), string(role)) {
			users = append(users, table.user(row))
		}
	}
	return users, nil
}

// UpdateSettings overwrites the settings column of the user's row.
func (r *Repository) UpdateSettings(ctx context.Context, id string, settingsJSON string) error {
	return r.updateCells(ctx, id, map[string]string{colSettingsJSON: settingsJSON})
}

// MigratePasswordHash replaces the password column with newHash and stamps
// migratedAt with the current time.
func (r *Repository) MigratePasswordHash(ctx context.Context, id string, newHash string) error {
	return r.updateCells(ctx, id, map[string]string{
		colPasswordHash: newHash,
		colMigratedAt:   time.Now().UTC().Format(time.RFC3339),
	})
}

// updateCells is the single read-modify-write path for the Users sheet.
//
// Sequence: read the whole table, locate the target row, re-read just that
// row, and bail with a conflict if it no longer matches what the table read
// saw. Only then write the full row back with the changed cells applied.
//
// The re-read narrows but does not close the race window — the store has no
// conditional write. Between our verification read and our write, another
// writer can still slip in and be silently overwritten.
func (r *Repository) updateCells(ctx context.Context, id string, changes map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	table, err := r.loadUsers(ctx)
	if err != nil {
		return err
	}

	idx, ok := table.findRow(id)
	if !ok {
		return apperror.NotFound("user", id)
	}
	rowNum := sheetRow(idx)
	snapshot := table.rows[idx]

	// Staleness check: the row as it is right now must match the row we based
	// this update on.
	currentRange := fmt.Sprintf("%s!%d:%d", usersSheet, rowNum, rowNum)
	current, err := r.api.get(ctx, currentRange)
	if err != nil {
		return apperror.Store("re-reading user row", err)
	}
	var currentRow []any
	if len(current) > 0 {
		currentRow = current[0]
	}
	if !sameRow(snapshot, currentRow) {
		return apperror.Conflict("user", id)
	}

	// Copy the row, widen it to cover every changed column, apply changes.
	width := len(snapshot)
	for name := range changes {
		colIdx, ok := table.cols[name]
		if !ok {
			return apperror.Store("updating user row",
				fmt.Errorf("sheet %q is missing column %q", usersSheet, name))
		}
		if colIdx+1 > width {
			width = colIdx + 1
		}
	}
	updated := make([]any, width)
	for i := range updated {
		if i < len(snapshot) {
			updated[i] = snapshot[i]
		} else {
			updated[i] = ""
		}
	}
	for name, value := range changes {
		updated[table.cols[name]] = value
	}

	writeRange := fmt.Sprintf("%s!A%d", usersSheet, rowNum)
	if err := r.api.update(ctx, writeRange, updated); err != nil {
		return apperror.Store("writing user row", err)
	}
	return nil
}

// sameRow compares two raw rows cell by cell as strings, treating missing
// trailing cells as empty (the API trims them).
func sameRow(a, b []any) bool {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var av, bv string
		if i < len(a) {
			av = cellString(a[i])
		}
		if i < len(b) {
			bv = cellString(b[i])
		}
		if av != bv {
			return false
		}
	}
	return true
}

// Append writes one audit row: id, userId, timestamp, eventKind. The Audit
// sheet is append-only and never read back by this system.
func (r *Repository) Append(ctx context.Context, userID string, eventKind string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := []any{
		xid.New().String(),
		userID,
		time.Now().UTC().Format(time.RFC3339),
		eventKind,
	}
	if err := r.api.append(ctx, auditSheet, row); err != nil {
		return apperror.Store("appending audit entry", err)
	}

	r.logger.Debug("audit entry appended",
		slog.String("userID", userID),
		slog.String("event", eventKind),
	)
	return nil
}

// cellString renders a sheet cell as a string. Cells arrive as any (usually
// string, occasionally float64 when the sheet decided a value was numeric).
func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
