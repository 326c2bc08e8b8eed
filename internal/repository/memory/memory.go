// Package memory is the in-memory repository used in demo mode.
//
// Demo mode exists so the server can run with zero external dependencies —
// no spreadsheet, no service account. The repository is seeded with the two
// demo accounts and behaves like the real store, minus the network: settings
// writes persist for the life of the process and vanish on restart.
//
// Handler tests also use this package as their fixture store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/classroom-portal/internal/apperror"
	"github.com/sakif/classroom-portal/internal/model"
	"github.com/sakif/classroom-portal/internal/repository"
)

var (
	_ repository.UserRepository = (*Repository)(nil)
	_ repository.AuditLog       = (*Repository)(nil)
)

// Repository holds users in a mutex-guarded map. Reads copy records out so
// callers can't mutate shared state behind the lock's back.
type Repository struct {
	mu    sync.Mutex
	users map[string]*model.User
	order []string // insertion order, so listings are stable
	audit []model.AuditEntry
}

// New creates an empty repository.
func New() *Repository {
	return &Repository{users: make(map[string]*model.User)}
}

// NewDemo creates a repository seeded with the demo accounts. Password
// hashes are irrelevant here — demo credential checks happen against the
// hardcoded triples in the auth service, not against these records.
func NewDemo() *Repository {
	r := New()
	r.Seed(
		model.User{
			UserID:      "admin",
			Role:        model.RoleStaff,
			DisplayName: "Demo Admin",
			Email:       "admin@example.com",
		},
		model.User{
			UserID:      "student",
			Role:        model.RoleStudent,
			DisplayName: "Demo Student",
			Email:       "student@example.com",
		},
	)
	return r
}

// Seed inserts records directly, bypassing the "gateway never inserts users"
// rule — seeding stands in for the out-of-band provisioning the real store
// gets from humans editing the sheet.
func (r *Repository) Seed(users ...model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range users {
		u := users[i]
		if _, exists := r.users[u.UserID]; !exists {
			r.order = append(r.order, u.UserID)
		}
		r.users[u.UserID] = &u
	}
}

func (r *Repository) FindByUserID(ctx context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (r *Repository) FindAll(ctx context.Context) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]model.User, 0, len(r.order))
	for _, id := range r.order {
		users = append(users, *r.users[id])
	}
	return users, nil
}

func (r *Repository) FindAllByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var users []model.User
	for _, id := range r.order {
		if r.users[id].Role == role {
			users = append(users, *r.users[id])
		}
	}
	return users, nil
}

func (r *Repository) UpdateSettings(ctx context.Context, id string, settingsJSON string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.SettingsJSON = settingsJSON
	return nil
}

func (r *Repository) MigratePasswordHash(ctx context.Context, id string, newHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	now := time.Now().UTC()
	u.PasswordHash = newHash
	u.MigratedAt = &now
	return nil
}

// Append records the audit entry in memory. Demo mode has nowhere durable to
// put it; keeping the slice makes the behavior observable in tests.
func (r *Repository) Append(ctx context.Context, userID string, eventKind string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.audit = append(r.audit, model.AuditEntry{
		ID:        xid.New().String(),
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		EventKind: eventKind,
	})
	return nil
}

// AuditEntries returns a copy of the recorded audit log. Test helper.
func (r *Repository) AuditEntries() []model.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.AuditEntry, len(r.audit))
	copy(out, r.audit)
	return out
}
