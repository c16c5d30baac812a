// Package client calls a deployed workstation endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"workstation/internal/logging"

	"github.com/hashicorp/go-retryablehttp"
)

// ErrUnexpectedStatus is returned for any non-2xx response.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Client sends provisioning and termination requests with the raw API key.
type Client struct {
	endpoint string
	apiKey   string
	http     *retryablehttp.Client
}

// New creates a Client. Requests are never retried: a repeated POST would
// start a second provisioning sequence.
func New(endpoint, apiKey string, timeout time.Duration) *Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		return false, err
	}
	client.HTTPClient.Timeout = timeout
	client.Logger = newLeveledLogger(logging.Logger())

	return &Client{endpoint: endpoint, apiKey: apiKey, http: client}
}

// Up provisions the workstation for currentIP and returns its external address.
func (c *Client) Up(ctx context.Context, currentIP string) (string, error) {
	payload, err := json.Marshal(map[string]string{"CURRENT_IP": currentIP})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, payload)
}

// Down deletes the workstation and returns the endpoint's confirmation.
func (c *Client) Down(ctx context.Context) (string, error) {
	return c.do(ctx, http.MethodDelete, nil)
}

func (c *Client) do(ctx context.Context, method string, payload []byte) (string, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", method, c.endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s %s returned %d", ErrUnexpectedStatus, method, c.endpoint, resp.StatusCode)
	}
	return strings.TrimSpace(string(data)), nil
}
