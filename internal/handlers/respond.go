// Package handlers implements the JSON HTTP endpoints of the annonce API.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"masterannonce/internal/apierror"
	"masterannonce/internal/auth"
	"masterannonce/internal/engine"
	"masterannonce/internal/store"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// validationError carries per-field input problems as "field: message".
type validationError struct {
	details []string
}

func (e *validationError) Error() string {
	return "validation failed: " + strings.Join(e.details, "; ")
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response failed", "error", err)
	}
}

// writeRaw sends an already encoded JSON body.
func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// writeError maps an error onto the API error body. Unknown errors are
// logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validationError
	switch {
	case errors.As(err, &verr):
		apierror.Write(w, http.StatusBadRequest, "Validation Failed", "Invalid input", verr.details...)
	case errors.Is(err, engine.ErrNotFound):
		apierror.Write(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, engine.ErrForbidden):
		apierror.Write(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, engine.ErrBusinessRule):
		apierror.Write(w, http.StatusBadRequest, "Business Rule Violation", err.Error())
	case errors.Is(err, engine.ErrInvalidTransition):
		apierror.Write(w, http.StatusBadRequest, "Invalid Operation", err.Error())
	case errors.Is(err, engine.ErrVersionConflict):
		apierror.Write(w, http.StatusConflict, "Conflict", engine.ConflictMessage)
	case errors.Is(err, auth.ErrUsernameTaken):
		apierror.Write(w, http.StatusBadRequest, "Business Rule Violation", "Username is already taken")
	case errors.Is(err, auth.ErrEmailTaken):
		apierror.Write(w, http.StatusBadRequest, "Business Rule Violation", "Email is already in use")
	case errors.Is(err, store.ErrDuplicate):
		apierror.Write(w, http.StatusBadRequest, "Business Rule Violation", "An entry with this value already exists")
	case errors.Is(err, auth.ErrInvalidCredentials):
		apierror.Unauthorized(w, "Invalid username or password")
	case errors.Is(err, auth.ErrInvalidToken):
		apierror.Unauthorized(w, "Invalid or expired token")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		apierror.Internal(w)
	}
}

// decodeJSON reads a JSON body into dst. Unknown fields are rejected so
// typos surface as errors instead of silent no-ops.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return &validationError{details: []string{"body: request body is required"}}
		case errors.As(err, &maxErr):
			return &validationError{details: []string{"body: request body is too large"}}
		default:
			return &validationError{details: []string{"body: malformed JSON: " + err.Error()}}
		}
	}
	return nil
}
