// Package dispatch performs the adapted upstream call, either directly or
// through a configured forwarding hop. It is a transparent conduit: no
// retries, no proactive timeout, no body inspection.
package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/cheluen/new-api-workers/internal/domain"
)

// Header names understood by the forwarding hop.
const (
	HeaderRelayTarget = "X-Relay-Target"
	HeaderRelaySecret = "X-Relay-Secret"
)

// Dispatcher issues upstream calls. When a hop is configured the call goes to
// the hop with the real target and the shared secret in headers; the hop
// performs the upstream call and streams the result back verbatim.
type Dispatcher struct {
	client    *http.Client
	hopURL    string
	hopSecret string
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithHop routes dispatches through a forwarding hop.
func WithHop(url, secret string) Option {
	return func(d *Dispatcher) {
		d.hopURL = url
		d.hopSecret = secret
	}
}

// WithClient overrides the HTTP client.
func WithClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

// New creates a dispatcher. The default client carries no timeout of its own;
// request lifetime is bounded by the caller's context.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{client: &http.Client{}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch performs the call and returns the upstream response with its body
// still open. Network-level failures surface as domain.ErrUpstreamUnreachable.
func (d *Dispatcher) Dispatch(ctx context.Context, method, targetURL string, headers http.Header, body []byte, correlationID string) (*http.Response, error) {
	reqURL := targetURL
	if d.hopURL != "" {
		reqURL = d.hopURL
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	for k, vals := range headers {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	if d.hopURL != "" {
		req.Header.Set(HeaderRelayTarget, targetURL)
		if d.hopSecret != "" {
			req.Header.Set(HeaderRelaySecret, d.hopSecret)
		}
	}
	if correlationID != "" {
		req.Header.Set("X-Request-Id", correlationID)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnreachable, err)
	}
	return resp, nil
}
