package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT RESPONSE FORMAT:
// Every response from our API has the same envelope:
//
//	{"success": true,  "message": "Donation updated successfully.", "donation": {...}}
//	{"success": false, "error": "invalid_state", "message": "Only pending donations can be approved or rejected."}
//
// The payload keys ("donation", "donations", "match", ...) sit next to
// success/message at the top level. The frontend branches on "success" and
// on the machine-readable "error" kind, and shows "message" to the user.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/givehub/internal/apperror"
	"github.com/sakif/givehub/internal/auth"
	"github.com/sakif/givehub/internal/model"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`   // Machine-readable error kind (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// payload is the data merged into a success envelope.
type payload map[string]any

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// You MUST set headers and status code BEFORE writing the body.
// Once you call w.Write() (which Encode does internally), the headers are sent.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeSuccess wraps data in the success envelope. An empty message is
// left out.
func writeSuccess(w http.ResponseWriter, status int, message string, data payload) {
	body := make(map[string]any, len(data)+2)
	for k, v := range data {
		body[k] = v
	}
	body["success"] = true
	if message != "" {
		body["message"] = message
	}
	writeJSON(w, status, body)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind string) int {
	switch kind {
	case "validation_error":
		return http.StatusBadRequest
	case "unauthorized":
		return http.StatusUnauthorized
	case "forbidden":
		return http.StatusForbidden
	case "not_found":
		return http.StatusNotFound
	case "invalid_state", "conflict":
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// The service layer returns *apperror.AppError values; errors.As walks the
// wrap chain to find one. Anything else is an internal failure: it is logged
// with the request path and answered with a generic 500. NEVER expose
// internal error details to the client, they can contain SQL or file paths.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		kind := apperror.Kind(err)
		writeJSON(w, statusFor(kind), ErrorResponse{
			Error:   kind,
			Message: appErr.Message,
		})
		return
	}

	logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred.",
	})
}

// decodeJSON reads a JSON body of at most 1 MiB into dst. A malformed body
// comes back as a validation error so writeError answers 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.ValidationFailed("", "Request body is required.")
		}
		return apperror.ValidationFailed("", "Invalid JSON body.")
	}
	return nil
}

// requireActor pulls the authenticated actor set by auth.RequireAuth. On a
// route mounted without RequireAuth it answers 401 and returns false.
func requireActor(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (model.Actor, bool) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, r, logger, apperror.Unauthorized("Authentication required."))
		return model.Actor{}, false
	}
	return actor, true
}
