package auth

import (
	"net/http"
	"time"
)

// sessionCookieName is fixed by the API contract: the frontend and every
// existing deployment expect the session under "token".
const sessionCookieName = "token"

// CookieCodec moves the session token in and out of the HTTP cookie layer.
//
// COOKIE ATTRIBUTES:
//   - HttpOnly: JavaScript cannot read the cookie, so an XSS bug cannot
//     exfiltrate the session token.
//   - SameSite=Lax: the cookie rides along on top-level navigations but not
//     on cross-site POSTs, which blunts CSRF.
//   - Secure: set in production only — local development runs plain HTTP.
//   - Max-Age matches the token's own validity window, so the browser drops
//     the cookie around the same time the token stops verifying.
type CookieCodec struct {
	secure bool
}

// NewCookieCodec creates a codec. secure should be true in any environment
// served over HTTPS.
func NewCookieCodec(secure bool) *CookieCodec {
	return &CookieCodec{secure: secure}
}

// Set writes the session cookie carrying the signed token.
func (c *CookieCodec) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   c.secure,
	})
}

// Clear instructs the browser to discard the session cookie immediately.
// A negative MaxAge serializes as Max-Age=0, the standard delete signal.
// Note this does nothing to the token itself — there is no server-side
// revocation, the token stays valid until its expiry.
func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   c.secure,
	})
}

// Read extracts the raw token value from the request, if present.
// A missing or empty cookie is "no session", never an error — the role gate
// decides what that means for the route.
func (c *CookieCodec) Read(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
