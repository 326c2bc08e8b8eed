package auth

import (
	"context"
	"net/http"

	"github.com/sakif/classroom-portal/internal/apperror"
)

// contextKey is an unexported type for context keys in this package.
// Using a package-private type means no other package can read or shadow the
// claims we stash in the request context.
type contextKey string

const claimsKey contextKey = "sessionClaims"

// RoleGate is the sole authorization boundary of the service. Every
// data-bearing route goes through one of its middlewares; there is no other
// code path that reads the session cookie.
//
// Decode → verify → (optional) role check:
//
//	cookie ──CookieCodec──▶ raw token ──TokenService──▶ Claims ──▶ context
//
// Absence or invalidity of the token is "unauthenticated"; a valid token with
// the wrong role is "forbidden". How those map to HTTP status codes depends
// on the route, see Require and RequireRole below.
type RoleGate struct {
	tokens *TokenService
	cookie *CookieCodec
}

// NewRoleGate creates the gate from the token service and cookie codec built
// in the composition root.
func NewRoleGate(tokens *TokenService, cookie *CookieCodec) *RoleGate {
	return &RoleGate{tokens: tokens, cookie: cookie}
}

// Authorize inspects the request's session cookie and returns the verified
// claims. requiredRole may be empty, meaning any authenticated role passes.
//
// Error contract:
//   - apperror.ErrUnauthenticated — no cookie, or the token fails verification
//   - apperror.ErrForbidden       — valid session, role ≠ requiredRole
func (g *RoleGate) Authorize(r *http.Request, requiredRole string) (*Claims, error) {
	raw, ok := g.cookie.Read(r)
	if !ok {
		return nil, apperror.Unauthenticated("valid session required")
	}

	claims, err := g.tokens.Validate(raw)
	if err != nil {
		// Expired, tampered, malformed — all the same to the caller.
		return nil, apperror.Unauthenticated("valid session required")
	}

	if requiredRole != "" && string(claims.Role) != requiredRole {
		return nil, apperror.Forbidden("insufficient role")
	}

	return claims, nil
}

// Require is middleware for routes any authenticated user may call
// (/api/auth/me, /api/user/settings). Missing or invalid sessions get 401.
func (g *RoleGate) Require() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := g.Authorize(r, "")
			if err != nil {
				writeGateError(w, http.StatusUnauthorized, "valid authentication required")
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// RequireRole is middleware for role-gated routes (the admin surface).
//
// Any failure — no cookie, bad token, wrong role — answers 403: from the
// outside, an anonymous caller is simply "not staff", and the admin routes
// have always answered 403 to both. Routes without a role requirement keep
// the 401/403 distinction via Require.
func (g *RoleGate) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := g.Authorize(r, role)
			if err != nil {
				writeGateError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// writeGateError emits the gate's minimal JSON error body. The gate cannot
// depend on the handler package (handlers depend on auth), so it carries its
// own tiny writer.
func writeGateError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"message":"` + message + `"}`))
}

func withClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext retrieves the verified session claims placed by the gate.
// Returns (nil, false) on routes the gate never ran for.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}
