// Package auth provides session-token issuance, cookie transport, password
// hashing, and the role gate that protects every data-bearing route.
//
// SESSION MODEL:
// The signed JWT *is* the session. The server keeps no session table: all the
// state a request needs (userId, role, expiry) travels inside the token, and
// the HMAC signature guarantees nobody minted or altered it without the
// server's secret. The flip side is that logout cannot revoke anything
// server-side — it only tells the browser to drop the cookie, and a captured
// token stays valid until its natural expiry. That trade-off is deliberate
// and documented rather than papered over.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims → {"sub":"userId","role":"staff","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/classroom-portal/internal/model"
)

// sessionTTL is the validity window of every issued token. There is no
// refresh mechanism: after 8 hours the user logs in again.
const sessionTTL = 8 * time.Hour

const issuer = "classroom-portal"

// Claims is the verified payload of a session token, handed to handlers by
// the role gate. Values come straight from the token; the store is not
// consulted during verification.
type Claims struct {
	UserID    string
	Role      model.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService signs and verifies session tokens.
//
// It holds the HMAC secret used for both operations. The secret is a required
// configuration input: NewTokenService fails closed on anything short or
// empty instead of falling back to a default an attacker could guess.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// tokenClaims is the wire shape of the JWT payload. It embeds
// jwt.RegisteredClaims (sub, iss, iat, exp) and adds the role claim — the
// role is baked into the token at login so authorization never needs a store
// round-trip.
type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issue creates and signs a session token for the given identity, expiring
// sessionTTL from now.
func (s *TokenService) Issue(userID string, role model.Role) (string, error) {
	return s.IssueWithDuration(userID, role, sessionTTL)
}

// IssueWithDuration creates a token with a custom validity window. Tests use
// this to mint already-expired tokens.
func (s *TokenService) IssueWithDuration(userID string, role model.Role, d time.Duration) (string, error) {
	now := time.Now()

	c := tokenClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token string and returns its claims.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired (exp is in the future)
//   - Issuer matches (prevents tokens minted by other apps sharing a secret)
//   - Algorithm is HS256 — pinning the algorithm blocks the classic
//     "alg:none" confusion attack
//
// On top of that we require a non-empty subject and a role we recognize; a
// token carrying an unknown role is as invalid as a tampered one.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&tokenClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}
	role, ok := model.ParseRole(c.Role)
	if !ok {
		return nil, fmt.Errorf("auth: token has unknown role %q", c.Role)
	}

	claims := &Claims{
		UserID: c.Subject,
		Role:   role,
	}
	if c.IssuedAt != nil {
		claims.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		claims.ExpiresAt = c.ExpiresAt.Time
	}
	return claims, nil
}
