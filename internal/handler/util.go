package handler

import (
	"encoding/json"
	"net/http"

	"github.com/skportal/feedback-inbox/internal/middleware"
)

// errorResponse is the error envelope of the local API. The correlation ID
// mirrors the X-Correlation-ID response header so the portal UI can quote it
// when reporting a failure.
type errorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, errorResponse{
		Error:         message,
		CorrelationID: middleware.GetCorrelationID(r.Context()),
	})
}
