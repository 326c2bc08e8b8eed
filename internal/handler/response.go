package handler

// RESPONSE HELPERS:
// These functions standardise how handlers send JSON and map domain errors
// onto HTTP. Every error response has the same one-field shape:
//
//	{"message": "Invalid credentials"}
//
// The mapping from error taxonomy to status code lives here and nowhere
// else — the service layer knows nothing about HTTP.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/classroom-portal/internal/apperror"
)

// ErrorResponse is the standard error body returned by all API endpoints.
type ErrorResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code. Headers must be
// set before the first body write; the order below is load-bearing.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already out; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeMessage sends the standard error body with the given status.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message})
}

// writeError maps a domain error to the appropriate HTTP status and sends it.
//
// Store failures deliberately collapse to a generic 500: the wrapped cause
// may carry spreadsheet ranges, service-account identifiers, or transport
// details that must never reach a client. The full chain is logged at the
// call site, not here.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrUnauthenticated):
			status = http.StatusUnauthorized
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
		case errors.Is(err, apperror.ErrRateLimited):
			status = http.StatusTooManyRequests
		case errors.Is(err, apperror.ErrStore):
			writeMessage(w, http.StatusInternalServerError, "Service temporarily unavailable")
			return
		}

		writeMessage(w, status, appErr.Message)
		return
	}

	// Unknown error — generic 500, no internals.
	writeMessage(w, http.StatusInternalServerError, "An internal error occurred")
}

// MethodNotAllowed is wired as chi's MethodNotAllowedHandler so unsupported
// methods on known routes answer 405 with the standard JSON body.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
}
