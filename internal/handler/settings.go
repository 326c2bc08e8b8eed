package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/classroom-portal/internal/auth"
	"github.com/sakif/classroom-portal/internal/service"
)

// SettingsHandler serves per-user settings.
//
// SCOPING INVARIANT: the user id these handlers operate on always comes from
// the verified session claims, never from the request. There is no way to
// read or write another user's settings through this surface.
type SettingsHandler struct {
	directory *service.DirectoryService
	logger    *slog.Logger
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(directory *service.DirectoryService, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{directory: directory, logger: logger}
}

type settingsResponse struct {
	Settings json.RawMessage `json:"settings"`
}

type updateSettingsRequest struct {
	Settings json.RawMessage `json:"settings"`
}

// HandleGetSettings returns the caller's stored settings document.
//
// HTTP: GET /api/user/settings
// Auth: any role; scoped to the session's own userId
func (h *SettingsHandler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "valid authentication required")
		return
	}

	settings, err := h.directory.Settings(r.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("settings read failed",
			slog.String("userID", claims.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, settingsResponse{Settings: settings})
}

// HandleUpdateSettings overwrites the caller's settings document.
//
// HTTP: POST /api/user/settings
// Body: {"settings": { ... arbitrary JSON ... }}
func (h *SettingsHandler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "valid authentication required")
		return
	}

	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Settings) == 0 {
		writeMessage(w, http.StatusBadRequest, "settings field is required")
		return
	}

	if err := h.directory.UpdateSettings(r.Context(), claims.UserID, req.Settings); err != nil {
		h.logger.Error("settings write failed",
			slog.String("userID", claims.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
