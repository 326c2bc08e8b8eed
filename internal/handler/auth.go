package handler

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/sakif/classroom-portal/internal/auth"
	"github.com/sakif/classroom-portal/internal/model"
	"github.com/sakif/classroom-portal/internal/ratelimit"
	"github.com/sakif/classroom-portal/internal/service"
)

// AuthHandler owns the login, logout, and identity-lookup endpoints.
//
// LOGIN PIPELINE (each stage short-circuits to its own status):
//
//	Received → RateChecked(429) → CredentialsVerified(401)
//	         → TokenIssued → CookieSet → Responded(200)
type AuthHandler struct {
	authSvc *service.AuthService
	limiter *ratelimit.Limiter
	cookies *auth.CookieCodec
	logger  *slog.Logger
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected; the
// handler has no knowledge of how they're constructed.
func NewAuthHandler(
	authSvc *service.AuthService,
	limiter *ratelimit.Limiter,
	cookies *auth.CookieCodec,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authSvc: authSvc,
		limiter: limiter,
		cookies: cookies,
		logger:  logger,
	}
}

// loginRequest is the POST /api/auth/login body.
type loginRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// loginResponse is the success body. RedirectTo tells the frontend where to
// navigate: /admin for staff, /dashboard for students.
type loginResponse struct {
	OK         bool       `json:"ok"`
	Role       model.Role `json:"role"`
	RedirectTo string     `json:"redirectTo"`
}

// HandleLogin authenticates a credential triple and establishes the session.
//
// HTTP: POST /api/auth/login
//
// The rate check runs FIRST and counts every attempt, valid or not — an
// attacker must not be able to probe credentials for free by failing fast,
// and a legitimate user hammering a wrong password burns their budget too.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow(clientKey(r)) {
		h.logger.Warn("login rate limited", slog.String("client", clientKey(r)))
		writeMessage(w, http.StatusTooManyRequests, "Too many login attempts, try again later")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || req.Password == "" || req.Role == "" {
		writeMessage(w, http.StatusBadRequest, "userId, password and role are required")
		return
	}
	role, ok := model.ParseRole(req.Role)
	if !ok {
		// An unknown role is just a bad credential — same answer as a wrong
		// password, nothing learned.
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	result, err := h.authSvc.Login(r.Context(), req.UserID, req.Password, role)
	if err != nil {
		h.logger.Error("login failed against store",
			slog.String("userID", req.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	if result == nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	h.cookies.Set(w, result.Token)
	writeJSON(w, http.StatusOK, loginResponse{
		OK:         true,
		Role:       result.Role,
		RedirectTo: result.RedirectTo,
	})
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /api/auth/logout
//
// Stateless sessions mean "logout" is purely client-side: the token itself
// stays valid until expiry because there is no server-side revocation list.
// The endpoint needs no auth — clearing a cookie you don't have is harmless.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// meResponse wraps the user record; user is null when the session is valid
// but its row has vanished from the store.
type meResponse struct {
	User *model.User `json:"user"`
}

// HandleMe returns the authenticated caller's own record.
//
// HTTP: GET /api/auth/me
// Auth: any role (gate returns 401 before we run)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		// Unreachable on a gated route; kept as a guard against future
		// route wiring mistakes.
		writeMessage(w, http.StatusUnauthorized, "valid authentication required")
		return
	}

	user, err := h.authSvc.CurrentUser(r.Context(), claims)
	if err != nil {
		h.logger.Error("me lookup failed",
			slog.String("userID", claims.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{User: user})
}

// clientKey derives the rate-limit key from the request. chi's RealIP
// middleware has already folded X-Forwarded-For into RemoteAddr, so this is
// the closest thing to a client identity we have. The ephemeral port is
// stripped — the same host must not get a fresh budget per connection.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return r.RemoteAddr
	}
	return host
}
