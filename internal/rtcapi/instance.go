package rtcapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Lifecycle creates, messages and destroys per-session agent instances.
// Every operation is a single signed call with no automatic retry.
type Lifecycle struct {
	client   *Client
	registry *Registry
	logger   *slog.Logger
}

// NewLifecycle creates an instance lifecycle manager.
func NewLifecycle(client *Client, registry *Registry, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{
		client:   client,
		registry: registry,
		logger:   logger,
	}
}

// Instance identifies a live agent instance and the template it was
// created from.
type Instance struct {
	AgentInstanceID string
	AgentID         string
}

type createInstanceBody struct {
	AgentID      string `json:"AgentId"`
	RoomID       string `json:"RoomId"`
	UserID       string `json:"UserId"`
	UserStreamID string `json:"UserStreamId"`
}

type createInstanceData struct {
	AgentInstanceID string `json:"AgentInstanceId"`
}

type sendLLMBody struct {
	AgentInstanceID string `json:"AgentInstanceId"`
	Content         string `json:"Content"`
}

type deleteInstanceBody struct {
	AgentInstanceID string `json:"AgentInstanceId"`
}

// CreateInstance binds the registered agent template to a room/user pair.
// Registration happens lazily on the first create. When userStreamID is
// empty it defaults to "<userID>_stream".
func (l *Lifecycle) CreateInstance(ctx context.Context, roomID, userID, userStreamID string) (*Instance, error) {
	agentID, err := l.registry.EnsureRegistered(ctx)
	if err != nil {
		return nil, err
	}

	if userStreamID == "" {
		userStreamID = userID + "_stream"
	}

	env, err := l.client.call(ctx, "CreateAgentInstance", createInstanceBody{
		AgentID:      agentID,
		RoomID:       roomID,
		UserID:       userID,
		UserStreamID: userStreamID,
	})
	if err != nil {
		return nil, err
	}
	if env.Code != vendorOK {
		return nil, &InstanceCreationError{VendorError{Action: "CreateAgentInstance", Code: env.Code, Message: env.Message}}
	}

	var data createInstanceData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("decode CreateAgentInstance data: %w", err)
	}

	l.logger.Info("agent instance created", "agent_instance_id", data.AgentInstanceID, "room_id", roomID)
	return &Instance{AgentInstanceID: data.AgentInstanceID, AgentID: agentID}, nil
}

// SendUtterance forwards one user utterance to the instance's LLM. The
// caller has already displayed the message optimistically, so a failure is
// surfaced but changes no local state.
func (l *Lifecycle) SendUtterance(ctx context.Context, agentInstanceID, text string) error {
	env, err := l.client.call(ctx, "SendAgentInstanceLLM", sendLLMBody{
		AgentInstanceID: agentInstanceID,
		Content:         text,
	})
	if err != nil {
		return err
	}
	if env.Code != vendorOK {
		return &SendError{VendorError{Action: "SendAgentInstanceLLM", Code: env.Code, Message: env.Message}}
	}
	return nil
}

// DestroyInstance tears down an agent instance. Best-effort: on failure
// the caller still ends the local session and the instance is leaked.
func (l *Lifecycle) DestroyInstance(ctx context.Context, agentInstanceID string) error {
	env, err := l.client.call(ctx, "DeleteAgentInstance", deleteInstanceBody{
		AgentInstanceID: agentInstanceID,
	})
	if err != nil {
		return err
	}
	if env.Code != vendorOK {
		return &InstanceTeardownError{VendorError{Action: "DeleteAgentInstance", Code: env.Code, Message: env.Message}}
	}

	l.logger.Info("agent instance destroyed", "agent_instance_id", agentInstanceID)
	return nil
}
