// Package apierror writes the JSON error body shared by every endpoint.
package apierror

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Body is the error payload returned to API clients.
type Body struct {
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Details   []string  `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Write sends an error response. The reason phrase defaults to the
// standard status text when empty.
func Write(w http.ResponseWriter, status int, reason, message string, details ...string) {
	if reason == "" {
		reason = http.StatusText(status)
	}
	body := Body{
		Status:    status,
		Error:     reason,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("write error body failed", "error", err)
	}
}

func Unauthorized(w http.ResponseWriter, message string) {
	Write(w, http.StatusUnauthorized, "", message)
}

func Forbidden(w http.ResponseWriter, message string) {
	Write(w, http.StatusForbidden, "", message)
}

func Internal(w http.ResponseWriter) {
	Write(w, http.StatusInternalServerError, "", "An unexpected error occurred")
}
