package handler

import (
	"net/http"

	"github.com/skportal/feedback-inbox/internal/push"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	pushClient *push.Client // nil when push is disabled
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(pushClient *push.Client) *HealthHandler {
	return &HealthHandler{
		pushClient: pushClient,
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
	// Push is optional; when configured it must be connected for the
	// daemon to count as ready.
	if h.pushClient != nil && !h.pushClient.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
