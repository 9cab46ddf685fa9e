package rtcapi

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

func TestEnsureRegisteredOnce(t *testing.T) {
	vendor := newFakeVendor(t)
	registry := NewRegistry(newTestClient(t, vendor), testAgentConfig(), testLogger())

	first, err := registry.EnsureRegistered(context.Background())
	if err != nil {
		t.Fatalf("EnsureRegistered failed: %v", err)
	}
	second, err := registry.EnsureRegistered(context.Background())
	if err != nil {
		t.Fatalf("Second EnsureRegistered failed: %v", err)
	}

	if first != second {
		t.Errorf("Expected cached agent id %s, got %s", first, second)
	}
	if got := vendor.callCount("RegisterAgent"); got != 1 {
		t.Errorf("Expected exactly 1 registration request, got %d", got)
	}
	if !registry.Registered() {
		t.Error("Expected Registered to be true after success")
	}
}

func TestEnsureRegisteredConcurrent(t *testing.T) {
	vendor := newFakeVendor(t)
	registry := NewRegistry(newTestClient(t, vendor), testAgentConfig(), testLogger())

	const callers = 16
	ids := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = registry.EnsureRegistered(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("Caller %d failed: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Errorf("Caller %d got id %s, want %s", i, ids[i], ids[0])
		}
	}
	if got := vendor.callCount("RegisterAgent"); got != 1 {
		t.Errorf("Expected exactly 1 registration request, got %d", got)
	}
}

func TestEnsureRegisteredFailureNotCached(t *testing.T) {
	vendor := newFakeVendor(t)
	registry := NewRegistry(newTestClient(t, vendor), testAgentConfig(), testLogger())

	vendor.respond("RegisterAgent", envelope{Code: 100001, Message: "invalid llm config"})

	_, err := registry.EnsureRegistered(context.Background())
	var regErr *RegistrationError
	if !errors.As(err, &regErr) {
		t.Fatalf("Expected RegistrationError, got %v", err)
	}
	if regErr.Message != "invalid llm config" {
		t.Errorf("Expected vendor message on error, got %q", regErr.Message)
	}
	if registry.Registered() {
		t.Error("Expected failed registration not to be cached")
	}

	// A later call retries and can succeed.
	vendor.respond("RegisterAgent", envelope{Code: 0})
	if _, err := registry.EnsureRegistered(context.Background()); err != nil {
		t.Fatalf("Retry after failure should succeed: %v", err)
	}
	if got := vendor.callCount("RegisterAgent"); got != 2 {
		t.Errorf("Expected 2 registration requests, got %d", got)
	}
}

func TestEnsureRegisteredSubmitsTemplate(t *testing.T) {
	vendor := newFakeVendor(t)
	registry := NewRegistry(newTestClient(t, vendor), testAgentConfig(), testLogger())

	if _, err := registry.EnsureRegistered(context.Background()); err != nil {
		t.Fatalf("EnsureRegistered failed: %v", err)
	}

	var template struct {
		AgentID string `json:"AgentId"`
		Name    string `json:"Name"`
		LLM     struct {
			Model  string `json:"Model"`
			Params struct {
				MaxTokens int `json:"max_tokens"`
			} `json:"Params"`
		} `json:"LLM"`
		TTS struct {
			VoiceID string `json:"VoiceId"`
		} `json:"TTS"`
		ASR struct {
			Language string `json:"Language"`
		} `json:"ASR"`
	}
	if err := json.Unmarshal(vendor.lastBody("RegisterAgent"), &template); err != nil {
		t.Fatalf("Failed to decode registration body: %v", err)
	}

	if template.AgentID == "" {
		t.Error("Expected AgentId in registration body")
	}
	if template.Name != "AI Assistant" {
		t.Errorf("Expected name 'AI Assistant', got %q", template.Name)
	}
	if template.LLM.Model != "test-model" {
		t.Errorf("Expected model test-model, got %q", template.LLM.Model)
	}
	if template.LLM.Params.MaxTokens != 2048 {
		t.Errorf("Expected max_tokens 2048, got %d", template.LLM.Params.MaxTokens)
	}
	if template.TTS.VoiceID != "BV700_streaming" {
		t.Errorf("Expected voice BV700_streaming, got %q", template.TTS.VoiceID)
	}
	if template.ASR.Language != "en" {
		t.Errorf("Expected language en, got %q", template.ASR.Language)
	}
}
