package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListConversations returns all stored conversations, most recently
// updated first.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.store.ListConversations(r.Context())
	if err != nil {
		slog.Error("Failed to list conversations", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	JSON(w, http.StatusOK, conversations)
}

// GetConversation returns one conversation by id.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	conv, err := h.store.GetConversation(r.Context(), id)
	if err != nil {
		slog.Error("Failed to load conversation", "conversation_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	if conv == nil {
		Error(w, http.StatusNotFound, "conversation not found")
		return
	}
	JSON(w, http.StatusOK, conv)
}

// DeleteConversation removes a conversation. Deleting an id that does not
// exist succeeds.
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.DeleteConversation(r.Context(), id); err != nil {
		slog.Error("Failed to delete conversation", "conversation_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to delete conversation")
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"success": true})
}
