package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type callbackEvent struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

// Callbacks ingests vendor-pushed lifecycle events. The vendor retries on
// non-2xx, so this endpoint acknowledges everything, including payloads it
// cannot parse.
func (h *Handler) Callbacks(w http.ResponseWriter, r *http.Request) {
	var event callbackEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		slog.Warn("Unparseable callback payload", "error", err)
		JSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}

	switch event.EventType {
	case "agent_started":
		slog.Info("Callback: agent started", "data", string(event.Data))
	case "agent_stopped":
		slog.Info("Callback: agent stopped", "data", string(event.Data))
	case "llm_response":
		slog.Info("Callback: LLM response", "data", string(event.Data))
	default:
		slog.Info("Callback: unknown event", "event_type", event.EventType)
	}

	JSON(w, http.StatusOK, map[string]bool{"success": true})
}
