package api

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status          string    `json:"status"`
	Timestamp       time.Time `json:"timestamp"`
	RegisteredAgent bool      `json:"registeredAgent"`
}

// Health reports liveness and whether the agent template has been
// registered with the vendor yet.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, healthResponse{
		Status:          "healthy",
		Timestamp:       time.Now(),
		RegisteredAgent: h.registry.Registered(),
	})
}
