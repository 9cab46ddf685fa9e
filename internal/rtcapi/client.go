package rtcapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// vendorOK is the response code the vendor uses for success.
const vendorOK = 0

// envelope is the vendor's response wrapper on every control API call.
type envelope struct {
	Code    int             `json:"Code"`
	Message string          `json:"Message"`
	Data    json.RawMessage `json:"Data,omitempty"`
}

// Client posts signed requests to the vendor control API. All calls share
// one URL; the Action query parameter selects the operation.
type Client struct {
	signer     *Signer
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a vendor API client.
func NewClient(signer *Signer, baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		signer:  signer,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// call signs and posts one action with the given JSON body, returning the
// decoded envelope. A non-zero envelope Code is not an error here; callers
// map it to their typed error so the vendor message survives.
func (c *Client) call(ctx context.Context, action string, body any) (*envelope, error) {
	values, err := c.signer.Sign(action, nil)
	if err != nil {
		return nil, fmt.Errorf("sign %s request: %w", action, err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s body: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"?"+values.Encode(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s: status %d: %s", action, resp.StatusCode, string(respBody))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", action, err)
	}

	if env.Code != vendorOK {
		c.logger.Warn("vendor call rejected", "action", action, "code", env.Code, "message", env.Message)
	}
	return &env, nil
}
