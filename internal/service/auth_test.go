package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/classroom-portal/internal/apperror"
	"github.com/sakif/classroom-portal/internal/auth"
	"github.com/sakif/classroom-portal/internal/model"
	"github.com/sakif/classroom-portal/internal/repository"
	"github.com/sakif/classroom-portal/internal/repository/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return tokens
}

func testPasswords() *auth.PasswordService {
	return auth.NewPasswordServiceWithCost(bcrypt.MinCost)
}

func newDemoAuthService(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService(memory.NewDemo(), testTokens(t), testPasswords(), true, testLogger())
}

// newStoreAuthService seeds a memory repo with one bcrypt-hashed account and
// returns a store-backed (non-demo) service over it.
func newStoreAuthService(t *testing.T) *AuthService {
	t.Helper()
	passwords := testPasswords()
	hash, err := passwords.Hash("s3cret")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	repo := memory.New()
	repo.Seed(model.User{
		UserID:       "alice",
		Role:         model.RoleStudent,
		DisplayName:  "Alice A",
		PasswordHash: hash,
	})

	return NewAuthService(repo, testTokens(t), passwords, false, testLogger())
}

// failingRepo simulates an unreachable store.
type failingRepo struct{}

var _ repository.UserRepository = failingRepo{}

func (failingRepo) FindByUserID(ctx context.Context, id string) (*model.User, error) {
	return nil, apperror.Store("reading users table", context.DeadlineExceeded)
}
func (failingRepo) FindAll(ctx context.Context) ([]model.User, error) {
	return nil, apperror.Store("reading users table", context.DeadlineExceeded)
}
func (failingRepo) FindAllByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	return nil, apperror.Store("reading users table", context.DeadlineExceeded)
}
func (failingRepo) UpdateSettings(ctx context.Context, id, settingsJSON string) error {
	return apperror.Store("writing user row", context.DeadlineExceeded)
}
func (failingRepo) MigratePasswordHash(ctx context.Context, id, newHash string) error {
	return apperror.Store("writing user row", context.DeadlineExceeded)
}

func TestVerify_DemoCredentials(t *testing.T) {
	svc := newDemoAuthService(t)
	ctx := context.Background()

	id, err := svc.Verify(ctx, "admin", "admin", model.RoleStaff)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if id == nil || id.UserID != "admin" || id.Role != model.RoleStaff {
		t.Errorf("Verify(admin) = %+v, want staff identity", id)
	}

	id, err = svc.Verify(ctx, "student", "student", model.RoleStudent)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if id == nil || id.Role != model.RoleStudent {
		t.Errorf("Verify(student) = %+v, want student identity", id)
	}
}

// Every flavor of mismatch yields the identical (nil, nil) answer — the
// caller must not be able to tell which part of the triple was wrong.
func TestVerify_DemoMismatchesIndistinguishable(t *testing.T) {
	svc := newDemoAuthService(t)
	ctx := context.Background()

	cases := []struct {
		name       string
		user, pass string
		role       model.Role
	}{
		{"wrong password", "admin", "wrong", model.RoleStaff},
		{"wrong role", "admin", "admin", model.RoleStudent},
		{"unknown user", "nobody", "admin", model.RoleStaff},
		{"crossed credentials", "admin", "student", model.RoleStaff},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := svc.Verify(ctx, tc.user, tc.pass, tc.role)
			if err != nil {
				t.Fatalf("Verify() error = %v, want nil", err)
			}
			if id != nil {
				t.Errorf("Verify() = %+v, want nil identity", id)
			}
		})
	}
}

func TestVerify_StoreBacked(t *testing.T) {
	svc := newStoreAuthService(t)
	ctx := context.Background()

	id, err := svc.Verify(ctx, "alice", "s3cret", model.RoleStudent)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if id == nil || id.UserID != "alice" || id.DisplayName != "Alice A" {
		t.Errorf("Verify() = %+v, want alice's identity", id)
	}

	for name, attempt := range map[string][3]string{
		"wrong password": {"alice", "wrong", "student"},
		"wrong role":     {"alice", "s3cret", "staff"},
		"unknown user":   {"nobody", "s3cret", "student"},
	} {
		role, _ := model.ParseRole(attempt[2])
		id, err := svc.Verify(ctx, attempt[0], attempt[1], role)
		if err != nil {
			t.Fatalf("%s: Verify() error = %v, want nil", name, err)
		}
		if id != nil {
			t.Errorf("%s: Verify() = %+v, want nil identity", name, id)
		}
	}
}

func TestVerify_StoreFailurePropagates(t *testing.T) {
	svc := NewAuthService(failingRepo{}, testTokens(t), testPasswords(), false, testLogger())

	_, err := svc.Verify(context.Background(), "alice", "s3cret", model.RoleStudent)
	if err == nil {
		t.Fatal("Verify() should propagate store failures, not swallow them as a mismatch")
	}
}

func TestLogin_IssuesValidatableToken(t *testing.T) {
	tokens := testTokens(t)
	svc := NewAuthService(memory.NewDemo(), tokens, testPasswords(), true, testLogger())

	result, err := svc.Login(context.Background(), "admin", "admin", model.RoleStaff)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result == nil {
		t.Fatal("Login() = nil, want a result")
	}
	if result.RedirectTo != "/admin" {
		t.Errorf("RedirectTo = %q, want /admin", result.RedirectTo)
	}

	claims, err := tokens.Validate(result.Token)
	if err != nil {
		t.Fatalf("issued token failed validation: %v", err)
	}
	if claims.UserID != "admin" || claims.Role != model.RoleStaff {
		t.Errorf("claims = %+v, want admin/staff", claims)
	}
}

func TestLogin_StudentRedirect(t *testing.T) {
	svc := newDemoAuthService(t)

	result, err := svc.Login(context.Background(), "student", "student", model.RoleStudent)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.RedirectTo != "/dashboard" {
		t.Errorf("RedirectTo = %q, want /dashboard", result.RedirectTo)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	svc := newDemoAuthService(t)

	result, err := svc.Login(context.Background(), "admin", "wrong", model.RoleStaff)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result != nil {
		t.Errorf("Login() = %+v, want nil", result)
	}
}

func TestCurrentUser(t *testing.T) {
	svc := newStoreAuthService(t)
	ctx := context.Background()

	user, err := svc.CurrentUser(ctx, &auth.Claims{UserID: "alice", Role: model.RoleStudent})
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if user == nil || user.UserID != "alice" {
		t.Errorf("CurrentUser() = %+v, want alice", user)
	}

	// A valid session whose row vanished: nil user, no error.
	user, err = svc.CurrentUser(ctx, &auth.Claims{UserID: "ghost", Role: model.RoleStudent})
	if err != nil {
		t.Fatalf("CurrentUser() for missing row error = %v", err)
	}
	if user != nil {
		t.Errorf("CurrentUser() for missing row = %+v, want nil", user)
	}
}
