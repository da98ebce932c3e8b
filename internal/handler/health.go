package handler

import (
	"net/http"

	"github.com/studyhub-ai/assistant-api/internal/docstore"
	"github.com/studyhub-ai/assistant-api/internal/events"
)

// HealthHandler handles health check endpoints. Both backing services are
// optional; a nil handle is simply not checked.
type HealthHandler struct {
	audit *events.Publisher
	docs  *docstore.Store
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(audit *events.Publisher, docs *docstore.Store) *HealthHandler {
	return &HealthHandler{
		audit: audit,
		docs:  docs,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.audit != nil && !h.audit.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	if h.docs != nil {
		if err := h.docs.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": "redis not reachable",
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
