package httpremote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openlro/openlro/pkg/lro"
)

// ClientConfig contains client configuration options.
type ClientConfig struct {
	// BaseURL is the root of the remote API, e.g. "http://localhost:8080".
	BaseURL string

	// Timeout bounds each individual protocol call. Zero means the default
	// of 30 seconds.
	Timeout time.Duration

	// HTTPClient optionally overrides the underlying HTTP client.
	HTTPClient *http.Client
}

// Client implements the remote operation protocol against an HTTP server.
// It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a new remote protocol client.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
	}, nil
}

// Start submits a payload and returns the issued operation handle.
func (c *Client) Start(ctx context.Context, payload string) (lro.OperationHandle, error) {
	body, err := json.Marshal(startOperationRequest{Payload: payload})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/operations", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach remote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", c.errorFrom(resp)
	}

	var ack startOperationResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if ack.Handle == "" {
		return "", fmt.Errorf("remote returned an empty handle")
	}
	return lro.OperationHandle(ack.Handle), nil
}

// GetStatus reports the current status of the operation.
func (c *Client) GetStatus(ctx context.Context, handle lro.OperationHandle) (lro.OperationStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.operationURL(handle), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach remote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.errorFrom(resp)
	}

	var st statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return lro.OperationStatus(st.Status), nil
}

// GetResult fetches the result payload of a succeeded operation.
func (c *Client) GetResult(ctx context.Context, handle lro.OperationHandle) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.operationURL(handle)+"/result", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach remote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFrom(resp)
	}

	result, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return json.RawMessage(result), nil
}

func (c *Client) operationURL(handle lro.OperationHandle) string {
	return c.baseURL + "/v1/operations/" + url.PathEscape(string(handle))
}

// errorFrom converts a non-2xx response into an error, preferring the
// server's error message when the body carries one.
func (c *Client) errorFrom(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("remote returned %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("remote returned %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}
