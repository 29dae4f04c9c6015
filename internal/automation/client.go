// Package automation is the outbound HTTP client for the workflow-automation
// backend. Every call carries a hard deadline; on expiry the in-flight
// request is cancelled and the caller fails fast. No retries: retry policy
// belongs to the frontend.
package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cwmia/gateway/internal/errors"
	"github.com/cwmia/gateway/internal/logging"
)

// maxResponseBytes caps how much of an upstream body is read. The backend
// is untrusted; a runaway response must not exhaust memory.
const maxResponseBytes = 1 << 20

// Response is a raw upstream reply. Parsing is left to the sanitizer.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// OK reports whether the status is a success status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Client posts JSON payloads to automation webhooks.
type Client struct {
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient creates a webhook client. Deadlines are per-call, so the
// underlying http.Client carries no timeout of its own.
func NewClient(logger *logging.Logger) *Client {
	return &Client{
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Post sends payload to the webhook URL and returns the raw response.
// secret, when non-empty, is attached as a bearer token. Transport errors
// and deadline expiry map to UpstreamUnreachable.
func (c *Client) Post(ctx context.Context, webhookURL, secret string, payload interface{}, timeout time.Duration) (*Response, error) {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Internal("failed to marshal webhook payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Internal("failed to build webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]interface{}{
			"webhook_url": webhookURL,
			"elapsed":     time.Since(start).String(),
		}).Warn("automation webhook unreachable")
		return nil, errors.UpstreamUnreachable("failed to reach automation webhook", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.UpstreamUnreachable("failed to read automation response", err)
	}

	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        raw,
	}, nil
}
