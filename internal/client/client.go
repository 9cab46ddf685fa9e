// Package client is the HTTP client for the backend proxy's API surface.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls the backend proxy that brokers agent instances.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a backend API client.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// StartResult is the response to a successful session start.
type StartResult struct {
	AgentInstanceID string `json:"agentInstanceId"`
	AgentID         string `json:"agentId"`
}

type startRequest struct {
	RoomID       string `json:"room_id"`
	UserID       string `json:"user_id"`
	UserStreamID string `json:"user_stream_id,omitempty"`
}

type sendMessageRequest struct {
	AgentInstanceID string `json:"agent_instance_id"`
	Message         string `json:"message"`
}

type stopRequest struct {
	AgentInstanceID string `json:"agent_instance_id"`
}

// StartSession asks the backend to provision an agent instance for the
// given room/user pair.
func (c *Client) StartSession(ctx context.Context, roomID, userID string) (*StartResult, error) {
	var result StartResult
	err := c.post(ctx, "/api/start", startRequest{
		RoomID:       roomID,
		UserID:       userID,
		UserStreamID: userID + "_stream",
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return &result, nil
}

// SendMessage forwards a user utterance to the agent instance.
func (c *Client) SendMessage(ctx context.Context, agentInstanceID, message string) error {
	err := c.post(ctx, "/api/send-message", sendMessageRequest{
		AgentInstanceID: agentInstanceID,
		Message:         message,
	}, nil)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// StopSession asks the backend to tear down an agent instance.
func (c *Client) StopSession(ctx context.Context, agentInstanceID string) error {
	err := c.post(ctx, "/api/stop", stopRequest{AgentInstanceID: agentInstanceID}, nil)
	if err != nil {
		return fmt.Errorf("stop session: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr == nil && errBody.Error != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, errBody.Error)
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
