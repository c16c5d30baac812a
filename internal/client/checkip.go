package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"workstation/internal/logging"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// DefaultCheckIPURL answers with the caller's public IPv4 address as plain text.
const DefaultCheckIPURL = "https://checkip.amazonaws.com"

// IPResolver discovers the public address the caller's traffic comes from.
type IPResolver struct {
	url  string
	http *retryablehttp.Client
}

// NewIPResolver creates a resolver that retries transient failures up to retries times.
func NewIPResolver(url string, retries int) *IPResolver {
	if url == "" {
		url = DefaultCheckIPURL
	}

	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = 10 * time.Second
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = newLeveledLogger(logging.Logger())

	return &IPResolver{url: url, http: client}
}

// CurrentIP returns the caller's public IPv4 address.
func (r *IPResolver) CurrentIP(ctx context.Context) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch current ip: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, r.url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", fmt.Errorf("failed to read current ip: %w", err)
	}

	text := strings.TrimSpace(string(body))
	addr, err := netip.ParseAddr(text)
	if err != nil || !addr.Is4() {
		return "", fmt.Errorf("unexpected current ip response %q", text)
	}

	logging.Logger().Debug("Resolved current IP", zap.String("ip", addr.String()))
	return addr.String(), nil
}
