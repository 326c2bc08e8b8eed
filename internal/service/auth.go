// Package service — authentication and account business logic.
//
// AuthService sits between the HTTP handlers and the auth/repository
// utilities:
//
//	AuthHandler (HTTP) → AuthService (credential rules) → UserRepository (store)
//	                   ↘ TokenService (JWT)
//
// ONE FAILURE, NO MATTER WHAT FAILED:
// Login can fail because the user is unknown, the password is wrong, or the
// claimed role doesn't match the record. Callers get the exact same answer
// for all three. That is a deliberate security property — an attacker probing
// the endpoint learns nothing about which part of a guess was right — so
// resist any urge to "improve" the error messages here.
package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"

	"github.com/sakif/classroom-portal/internal/auth"
	"github.com/sakif/classroom-portal/internal/model"
	"github.com/sakif/classroom-portal/internal/repository"
)

// demoCredential is one fixed identifier/secret/role triple for demo mode.
// Demo mode keeps the whole system runnable without a spreadsheet; the
// credentials are intentionally trivial and must never be enabled alongside
// real data.
type demoCredential struct {
	userID   string
	password string
	role     model.Role
}

var demoCredentials = []demoCredential{
	{userID: "admin", password: "admin", role: model.RoleStaff},
	{userID: "student", password: "student", role: model.RoleStudent},
}

// Identity is a successfully verified login identity.
type Identity struct {
	UserID      string
	Role        model.Role
	DisplayName string
}

// LoginResult bundles everything the handler needs to finish a login: the
// signed token for the cookie and the response fields.
type LoginResult struct {
	Token      string
	Role       model.Role
	RedirectTo string
}

// AuthService verifies credentials and issues session tokens.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	demoMode  bool
	logger    *slog.Logger
}

// NewAuthService creates an AuthService. When demoMode is true, credential
// checks run against the hardcoded demo triples and never touch the store.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	demoMode bool,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		demoMode:  demoMode,
		logger:    logger,
	}
}

// Verify checks an identifier/secret/role triple.
//
// Returns (nil, nil) on any credential mismatch — unknown user, wrong
// password, wrong role are indistinguishable by contract. A non-nil error
// means the store could not be consulted at all; that is the only case the
// handler surfaces as a 500 instead of a 401.
func (s *AuthService) Verify(ctx context.Context, userID, password string, role model.Role) (*Identity, error) {
	if s.demoMode {
		return s.verifyDemo(userID, password, role), nil
	}
	return s.verifyStore(ctx, userID, password, role)
}

func (s *AuthService) verifyDemo(userID, password string, role model.Role) *Identity {
	for _, c := range demoCredentials {
		// Constant-time compares; cheap enough to run against both triples
		// unconditionally.
		idOK := subtle.ConstantTimeCompare([]byte(c.userID), []byte(userID)) == 1
		pwOK := subtle.ConstantTimeCompare([]byte(c.password), []byte(password)) == 1
		if idOK && pwOK && c.role == role {
			return &Identity{UserID: c.userID, Role: c.role, DisplayName: c.userID}
		}
	}
	return nil
}

func (s *AuthService) verifyStore(ctx context.Context, userID, password string, role model.Role) (*Identity, error) {
	user, err := s.users.FindByUserID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			// Unknown user. Burn a bcrypt comparison anyway so the response
			// time doesn't reveal whether the identifier exists.
			_ = s.passwords.Verify(dummyHash, password)
			return nil, nil
		}
		return nil, fmt.Errorf("service/auth: verifying credentials for %s: %w", userID, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, nil
	}
	if user.Role != role {
		return nil, nil
	}

	return &Identity{UserID: user.UserID, Role: user.Role, DisplayName: user.DisplayName}, nil
}

// dummyHash is a bcrypt hash of an unguessable throwaway value, used to
// equalize timing between "unknown user" and "wrong password".
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// Login verifies the credentials and, on success, issues the session token
// and computes the post-login destination.
func (s *AuthService) Login(ctx context.Context, userID, password string, role model.Role) (*LoginResult, error) {
	identity, err := s.Verify(ctx, userID, password, role)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, nil
	}

	token, err := s.tokens.Issue(identity.UserID, identity.Role)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for %s: %w", identity.UserID, err)
	}

	s.logger.Info("user logged in",
		slog.String("userID", identity.UserID),
		slog.String("role", string(identity.Role)),
	)

	return &LoginResult{
		Token:      token,
		Role:       identity.Role,
		RedirectTo: redirectFor(identity.Role),
	}, nil
}

// redirectFor maps a role to its landing page. The frontend follows this
// verbatim after a successful login.
func redirectFor(role model.Role) string {
	if role == model.RoleStaff {
		return "/admin"
	}
	return "/dashboard"
}

// CurrentUser resolves the session's own user record for /api/auth/me.
// A valid session whose row has since vanished from the store yields
// (nil, nil) — the handler renders that as {"user": null}.
func (s *AuthService) CurrentUser(ctx context.Context, claims *auth.Claims) (*model.User, error) {
	user, err := s.users.FindByUserID(ctx, claims.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", claims.UserID, err)
	}
	return user, nil
}
