// internal/storefront/apiclient/client.go

// Package apiclient is the storefront's JSON client for the fruitbox API
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNetwork wraps transport failures: DNS, refused connections, timeouts
var ErrNetwork = errors.New("network error")

// Envelope is the fields every API response carries
type Envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// Response is a completed exchange. Non-2xx statuses are not errors at this level.
type Response struct {
	Status int
	Envelope
	Body []byte
}

// OK reports a 2xx status with success set
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300 && r.Success
}

// TokenSource returns the bearer token to attach, or "" for none
type TokenSource func(ctx context.Context) string

// Client talks to the API under baseURL
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *logrus.Logger
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithTokenSource attaches an Authorization header to every request
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.token = ts }
}

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, logger *logrus.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends body as JSON and decodes the reply. The envelope is decoded for
// every status so callers can show the server's message verbatim; out is
// only filled on 2xx.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) (*Response, error) {
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			return nil, fmt.Errorf("failed to marshal request data: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if tok := c.token(ctx); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	var respBody bytes.Buffer
	if _, err := respBody.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrNetwork, err)
	}

	c.logger.WithFields(logrus.Fields{
		"method":  method,
		"path":    path,
		"status":  resp.StatusCode,
		"latency": time.Since(start),
	}).Debug("api call")

	result := &Response{Status: resp.StatusCode, Body: respBody.Bytes()}
	if respBody.Len() > 0 {
		// a non-JSON body (proxy error page) leaves the envelope empty
		_ = json.Unmarshal(result.Body, &result.Envelope)
	}

	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.Unmarshal(result.Body, out); err != nil {
			return result, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return result, nil
}

// Get is Do without a body
func (c *Client) Get(ctx context.Context, path string, out interface{}) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post is Do with method POST
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body, out)
}
