package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/parleylabs/parley/internal/identity"
)

type startRequest struct {
	RoomID       string `json:"room_id"`
	UserID       string `json:"user_id"`
	UserStreamID string `json:"user_stream_id,omitempty"`
}

type startResponse struct {
	Success         bool   `json:"success"`
	AgentInstanceID string `json:"agentInstanceId"`
	AgentID         string `json:"agentId"`
}

type sendMessageRequest struct {
	AgentInstanceID string `json:"agent_instance_id"`
	Message         string `json:"message"`
}

type stopRequest struct {
	AgentInstanceID string `json:"agent_instance_id"`
}

// StartAgent provisions an agent instance for a room/user pair. The agent
// template is registered lazily on the first start after boot.
func (h *Handler) StartAgent(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !identity.ValidIdentifier(req.RoomID) || !identity.ValidIdentifier(req.UserID) {
		Error(w, http.StatusBadRequest, "room_id and user_id are required")
		return
	}
	if req.UserStreamID != "" && !identity.ValidIdentifier(req.UserStreamID) {
		Error(w, http.StatusBadRequest, "invalid user_stream_id")
		return
	}

	inst, err := h.lifecycle.CreateInstance(r.Context(), req.RoomID, req.UserID, req.UserStreamID)
	if err != nil {
		slog.Error("Failed to start agent instance", "room_id", req.RoomID, "error", err)
		Error(w, vendorStatus(err), err.Error())
		return
	}

	slog.Info("Agent instance started", "room_id", req.RoomID, "agent_instance_id", inst.AgentInstanceID)
	JSON(w, http.StatusOK, startResponse{
		Success:         true,
		AgentInstanceID: inst.AgentInstanceID,
		AgentID:         inst.AgentID,
	})
}

// SendMessage forwards a user utterance to a running agent instance.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AgentInstanceID == "" || req.Message == "" {
		Error(w, http.StatusBadRequest, "agent_instance_id and message are required")
		return
	}

	if err := h.lifecycle.SendUtterance(r.Context(), req.AgentInstanceID, req.Message); err != nil {
		slog.Error("Failed to forward message", "agent_instance_id", req.AgentInstanceID, "error", err)
		Error(w, vendorStatus(err), err.Error())
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// StopAgent destroys an agent instance.
func (h *Handler) StopAgent(w http.ResponseWriter, r *http.Request) {
	var req stopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AgentInstanceID == "" {
		Error(w, http.StatusBadRequest, "agent_instance_id is required")
		return
	}

	if err := h.lifecycle.DestroyInstance(r.Context(), req.AgentInstanceID); err != nil {
		slog.Error("Failed to stop agent instance", "agent_instance_id", req.AgentInstanceID, "error", err)
		Error(w, vendorStatus(err), err.Error())
		return
	}

	slog.Info("Agent instance stopped", "agent_instance_id", req.AgentInstanceID)
	JSON(w, http.StatusOK, map[string]bool{"success": true})
}
