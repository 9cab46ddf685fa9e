// Package api provides the backend HTTP surface for agent sessions.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parleylabs/parley/internal/rtcapi"
	"github.com/parleylabs/parley/internal/store"
)

// Handler provides common handler utilities.
type Handler struct {
	store     store.ConversationStore
	registry  *rtcapi.Registry
	lifecycle *rtcapi.Lifecycle
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(store store.ConversationStore, registry *rtcapi.Registry, lifecycle *rtcapi.Lifecycle) *Handler {
	return &Handler{
		store:     store,
		registry:  registry,
		lifecycle: lifecycle,
	}
}

// RegisterRoutes mounts all API routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/start", h.StartAgent)
		r.Post("/send-message", h.SendMessage)
		r.Post("/stop", h.StopAgent)
		r.Post("/callbacks", h.Callbacks)

		r.Get("/conversations", h.ListConversations)
		r.Get("/conversations/{id}", h.GetConversation)
		r.Delete("/conversations/{id}", h.DeleteConversation)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// vendorStatus maps a vendor call failure to an HTTP status. Vendor
// rejections surface as 502; anything else is a plain 500.
func vendorStatus(err error) int {
	if rtcapi.IsVendorError(err) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
