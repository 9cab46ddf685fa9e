package rtcapi

import (
	"context"
	"log/slog"
	"sync"

	"github.com/parleylabs/parley/internal/config"
	"github.com/parleylabs/parley/internal/identity"
)

// agentTemplate is the registration body for the RegisterAgent action.
// Field names and casing are fixed by the vendor.
type agentTemplate struct {
	AgentID string    `json:"AgentId"`
	Name    string    `json:"Name"`
	LLM     llmConfig `json:"LLM"`
	TTS     ttsConfig `json:"TTS"`
	ASR     asrConfig `json:"ASR"`
}

type llmConfig struct {
	URL          string    `json:"Url"`
	APIKey       string    `json:"ApiKey"`
	Model        string    `json:"Model"`
	SystemPrompt string    `json:"SystemPrompt"`
	Temperature  float64   `json:"Temperature"`
	TopP         float64   `json:"TopP"`
	Params       llmParams `json:"Params"`
}

type llmParams struct {
	MaxTokens int `json:"max_tokens"`
}

type ttsConfig struct {
	Vendor  string  `json:"Vendor"`
	VoiceID string  `json:"VoiceId"`
	Speed   float64 `json:"Speed"`
	Volume  float64 `json:"Volume"`
}

type asrConfig struct {
	Vendor   string `json:"Vendor"`
	Language string `json:"Language"`
}

// Registry ensures exactly one agent template is registered with the
// vendor per process lifetime. The template never leaves this type; only
// its id does.
type Registry struct {
	client *Client
	agent  config.AgentConfig
	logger *slog.Logger

	mu      sync.Mutex
	agentID string
}

// NewRegistry creates a Registry. Nothing is registered until the first
// EnsureRegistered call.
func NewRegistry(client *Client, agent config.AgentConfig, logger *slog.Logger) *Registry {
	return &Registry{
		client: client,
		agent:  agent,
		logger: logger,
	}
}

// EnsureRegistered registers the agent template on first call and returns
// the cached id afterwards. The mutex serializes concurrent first calls so
// exactly one registration request reaches the vendor; on failure nothing
// is cached and a later call retries.
func (r *Registry) EnsureRegistered(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.agentID != "" {
		return r.agentID, nil
	}

	agentID := identity.NewAgentID()
	template := agentTemplate{
		AgentID: agentID,
		Name:    r.agent.Name,
		LLM: llmConfig{
			URL:          r.agent.LLMURL,
			APIKey:       r.agent.LLMAPIKey,
			Model:        r.agent.LLMModel,
			SystemPrompt: r.agent.SystemPrompt,
			Temperature:  r.agent.Temperature,
			TopP:         r.agent.TopP,
			Params:       llmParams{MaxTokens: r.agent.MaxTokens},
		},
		TTS: ttsConfig{
			Vendor:  r.agent.TTSVendor,
			VoiceID: r.agent.TTSVoiceID,
			Speed:   r.agent.TTSSpeed,
			Volume:  r.agent.TTSVolume,
		},
		ASR: asrConfig{
			Vendor:   r.agent.ASRVendor,
			Language: r.agent.ASRLanguage,
		},
	}

	r.logger.Info("registering agent template with vendor", "agent_id", agentID)
	env, err := r.client.call(ctx, "RegisterAgent", template)
	if err != nil {
		return "", err
	}
	if env.Code != vendorOK {
		return "", &RegistrationError{VendorError{Action: "RegisterAgent", Code: env.Code, Message: env.Message}}
	}

	r.agentID = agentID
	r.logger.Info("agent template registered", "agent_id", agentID)
	return agentID, nil
}

// Registered reports whether the template has been registered yet.
func (r *Registry) Registered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.agentID != ""
}
