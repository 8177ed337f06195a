// Package guardian is a client for the content classification service that scores prompts before the
// gateway forwards them.
package guardian

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/isometry/echo-api/internal/helpers"
	"github.com/pkg/errors"
)

const (
	// DefaultURL is the classification service base URL.
	DefaultURL = "http://localhost:8000"
	// AnalyzePath is appended to the base URL for every classification request.
	AnalyzePath = "/analyze"

	// DefaultTimeout bounds a single classification attempt.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxAttempts is the number of attempts before Analyze gives up.
	DefaultMaxAttempts = 3
	// DefaultBackoff is the delay before the first retry.
	DefaultBackoff = 500 * time.Millisecond
)

// Scores are the per-category probabilities returned by the classifier, each in [0, 1].
// Categories missing from a reply score zero.
type Scores struct {
	Toxicity float64 `json:"toxicity"`
	Sexual   float64 `json:"sexual"`
	Violence float64 `json:"violence"`
	Illegal  float64 `json:"illegal"`
}

type analyzeRequest struct {
	Text string `json:"text"`
}

// Option configures a Client.
type Option func(*Client)

// WithURL sets the classification service base URL.
func WithURL(url string) Option {
	return func(c *Client) {
		c.url = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-attempt timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithRetry sets how many attempts are made and the delay before the first retry. The delay doubles
// after every failed attempt.
func WithRetry(maxAttempts int, initial time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
		c.backoff = initial
	}
}

// WithLogger sets the logger reporting failed attempts.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client scores text against the classification service, retrying failed attempts with exponential backoff.
type Client struct {
	url         string
	httpClient  *http.Client
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
}

// New returns a Client. Unset options fall back to DefaultURL, DefaultTimeout, DefaultMaxAttempts and DefaultBackoff.
func New(opts ...Option) *Client {
	_inst := &Client{
		url:         DefaultURL,
		timeout:     DefaultTimeout,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
	}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.maxAttempts < 1 {
		_inst.maxAttempts = 1
	}
	if _inst.httpClient == nil {
		_inst.httpClient = &http.Client{Timeout: _inst.timeout}
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	return _inst
}

// Analyze scores text. The last attempt's error is returned once every attempt has failed or ctx is done.
func (c *Client) Analyze(ctx context.Context, text string) (Scores, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.backoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	var scores Scores
	attempt := 0
	operation := func() error {
		attempt++
		var err error
		scores, err = c.analyze(ctx, text)
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("classification attempt failed", slog.Int("attempt", attempt), slog.Duration("retryIn", wait), slog.Any("error", err))
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxAttempts-1)), ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return Scores{}, errors.Wrapf(err, "classification failed after %d attempts", attempt)
	}
	return scores, nil
}

func (c *Client) analyze(ctx context.Context, text string) (Scores, error) {
	payload, err := json.Marshal(analyzeRequest{Text: text})
	if err != nil {
		return Scores{}, backoff.Permanent(errors.Wrap(err, "failed to encode classification request"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+AnalyzePath, bytes.NewReader(payload))
	if err != nil {
		return Scores{}, backoff.Permanent(errors.Wrap(err, "failed to create classification request"))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Scores{}, errors.Wrap(err, "classification request failed")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Scores{}, errors.Wrap(err, "failed to read classification response")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return Scores{}, errors.Errorf("classification service replied %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var scores Scores
	if err := json.Unmarshal(body, &scores); err != nil {
		return Scores{}, errors.Wrap(err, "failed to decode classification response")
	}
	return scores, nil
}
