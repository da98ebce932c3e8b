// Package handler implements the HTTP surface of the assistant API.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/studyhub-ai/assistant-api/internal/middleware"
)

// defaultUserID serves single-user deployments that never attach
// authentication or a user_id field.
const defaultUserID = "default"

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// resolveUserID picks the effective user: an explicit field wins, then the
// authenticated subject, then the single-user default.
func resolveUserID(r *http.Request, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if id := middleware.GetUserID(r.Context()); id != "" {
		return id
	}
	if id := r.URL.Query().Get("user_id"); id != "" {
		return id
	}
	return defaultUserID
}
