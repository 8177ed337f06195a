// Package client posts JSON bodies to the echo endpoint, optionally many times concurrently.
package client

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/isometry/echo-api/internal/helpers"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// DefaultURL is the endpoint targeted when no URL is configured.
const DefaultURL = "http://localhost:3000/post"

// Option configures a Client.
type Option func(*Client)

// WithURL sets the endpoint the client posts to.
func WithURL(url string) Option {
	return func(c *Client) {
		c.url = url
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets a per-request timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithConcurrency bounds the number of in-flight requests. Zero or less means unbounded.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		c.concurrency = n
	}
}

// WithLogger sets the logger used for per-request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client posts request bodies to the echo endpoint.
type Client struct {
	url         string
	httpClient  *http.Client
	timeout     time.Duration
	concurrency int
	logger      *slog.Logger
}

// Result is the outcome of a single request.
type Result struct {
	Index      int
	StatusCode int
	Body       []byte
	Err        error
}

// New returns a Client posting to DefaultURL unless WithURL is given. Without WithHTTPClient a client
// honouring the configured timeout is created.
func New(opts ...Option) *Client {
	_inst := &Client{url: DefaultURL}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.httpClient == nil {
		_inst.httpClient = &http.Client{Timeout: _inst.timeout}
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	return _inst
}

// Send posts body n times and returns the results in request order. Failures of individual requests
// are reported on their Result; the returned error is only set for invalid arguments.
func (c *Client) Send(ctx context.Context, body []byte, n int) ([]Result, error) {
	if n < 1 {
		return nil, errors.Errorf("request count must be positive, got %d", n)
	}

	results := make([]Result, n)
	var g errgroup.Group
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for i := range n {
		g.Go(func() error {
			results[i] = c.post(ctx, i, body)
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

func (c *Client) post(ctx context.Context, index int, body []byte) Result {
	result := Result{Index: index}
	logger := c.logger.With(slog.Int("request", index))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		result.Err = errors.Wrap(err, "failed to create request")
		return result
	}
	req.Header.Set("Content-Type", "application/json")

	logger.Debug("sending request...", slog.String("url", c.url))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("request failed", slog.Any("error", err))
		result.Err = errors.Wrap(err, "request failed")
		return result
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	result.StatusCode = resp.StatusCode
	if result.Body, err = io.ReadAll(resp.Body); err != nil {
		result.Err = errors.Wrap(err, "failed to read response body")
	}
	logger.Debug("received response", slog.Int("status", result.StatusCode))
	return result
}
