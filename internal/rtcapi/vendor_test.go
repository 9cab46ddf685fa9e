package rtcapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/parleylabs/parley/internal/config"
)

// fakeVendor is an httptest-backed stand-in for the vendor control API.
// It records each action's request body and serves canned envelopes.
type fakeVendor struct {
	t *testing.T

	mu        sync.Mutex
	calls     map[string]int
	bodies    map[string][]json.RawMessage
	responses map[string]envelope

	server *httptest.Server
}

func newFakeVendor(t *testing.T) *fakeVendor {
	t.Helper()
	v := &fakeVendor{
		t:         t,
		calls:     make(map[string]int),
		bodies:    make(map[string][]json.RawMessage),
		responses: make(map[string]envelope),
	}
	v.server = httptest.NewServer(http.HandlerFunc(v.handle))
	t.Cleanup(v.server.Close)
	return v
}

func (v *fakeVendor) handle(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("Action")
	if r.URL.Query().Get("Signature") == "" {
		v.t.Error("Request missing Signature parameter")
	}

	body, _ := io.ReadAll(r.Body)

	v.mu.Lock()
	v.calls[action]++
	v.bodies[action] = append(v.bodies[action], json.RawMessage(body))
	resp, ok := v.responses[action]
	v.mu.Unlock()

	if !ok {
		resp = envelope{Code: 0}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		v.t.Errorf("Failed to encode vendor response: %v", err)
	}
}

func (v *fakeVendor) respond(action string, env envelope) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.responses[action] = env
}

func (v *fakeVendor) callCount(action string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls[action]
}

func (v *fakeVendor) lastBody(action string) json.RawMessage {
	v.mu.Lock()
	defer v.mu.Unlock()
	bodies := v.bodies[action]
	if len(bodies) == 0 {
		return nil
	}
	return bodies[len(bodies)-1]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAgentConfig() config.AgentConfig {
	return config.AgentConfig{
		Name:         "AI Assistant",
		LLMURL:       "http://llm.local/v1/chat",
		LLMAPIKey:    "llm-key",
		LLMModel:     "test-model",
		SystemPrompt: "You are a helpful AI assistant.",
		Temperature:  0.7,
		TopP:         0.9,
		MaxTokens:    2048,
		TTSVendor:    "BytePlus",
		TTSVoiceID:   "BV700_streaming",
		TTSSpeed:     1.0,
		TTSVolume:    1.0,
		ASRVendor:    "BytePlus",
		ASRLanguage:  "en",
	}
}

func newTestClient(t *testing.T, vendor *fakeVendor) *Client {
	t.Helper()
	signer, err := NewSigner("12345", "test-secret")
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}
	return NewClient(signer, vendor.server.URL, 5*time.Second, testLogger())
}
