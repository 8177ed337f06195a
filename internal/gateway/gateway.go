// Package gateway fronts the echo endpoint with a screening reverse proxy. JSON prompts are scored by a
// classifier and blocked by the content policy or a rate limit before being forwarded, and forwarded
// bodies are re-encoded with the scores and a marker field attached.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/isometry/echo-api/internal/echo"
	"github.com/isometry/echo-api/internal/guardian"
	"github.com/isometry/echo-api/internal/helpers"
	"github.com/isometry/echo-api/internal/models"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const (
	// PromptField is the body field screened by the classifier.
	PromptField = "text"
	// ScoresField receives the classifier scores on forwarded bodies.
	ScoresField = "scores"
	// DefaultMarker is the field set to true on every forwarded JSON object.
	DefaultMarker = "mitm-req"
)

// Analyzer scores a prompt. *guardian.Client implements it.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (guardian.Scores, error)
}

// Rejection is the body of every response the gateway answers itself.
type Rejection struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithEventLogger sets the logger receiving one record per forwarded request and upstream response.
func WithEventLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.events = logger
	}
}

// WithAnalyzer enables screening of prompts. Without an analyzer prompts are forwarded unscored.
func WithAnalyzer(analyzer Analyzer) Option {
	return func(g *Gateway) {
		g.analyzer = analyzer
	}
}

// WithLimiter caps the rate of screened prompts. A nil limiter admits everything.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(g *Gateway) {
		g.limiter = limiter
	}
}

// WithMarker sets the field added to forwarded JSON objects. An empty key disables the marker.
func WithMarker(key string) Option {
	return func(g *Gateway) {
		g.marker = key
	}
}

// WithMaxBodyBytes caps the JSON bodies the gateway buffers. Zero or less disables the limit.
func WithMaxBodyBytes(n int64) Option {
	return func(g *Gateway) {
		g.maxBodyBytes = n
	}
}

// Gateway screens and rewrites requests on their way to the upstream.
type Gateway struct {
	logger       *slog.Logger
	events       *slog.Logger
	analyzer     Analyzer
	limiter      *rate.Limiter
	marker       string
	maxBodyBytes int64
}

// New returns a Gateway marking bodies with DefaultMarker and capping them at echo.DefaultMaxBodyBytes.
func New(opts ...Option) *Gateway {
	_inst := &Gateway{
		marker:       DefaultMarker,
		maxBodyBytes: echo.DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	if _inst.events == nil {
		_inst.events = helpers.NewNoopLogger()
	}
	return _inst
}

type flowKey struct{}

// FlowID returns the id Middleware assigned to the request carrying ctx.
func FlowID(ctx context.Context) string {
	id, _ := ctx.Value(flowKey{}).(string)
	return id
}

// Middleware screens JSON POST bodies before handing the request to next. Other requests pass through
// untouched.
func (g *Gateway) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		r = r.WithContext(context.WithValue(r.Context(), flowKey{}, id))
		logger := g.logger.With(slog.String("flow", id), slog.String("client", r.RemoteAddr), slog.String("path", r.URL.Path))

		if r.Method == http.MethodPost && echo.IsJSON(r.Header.Get("Content-Type")) {
			body, ok := g.screen(w, r, logger)
			if !ok {
				return
			}
			g.events.Info("request",
				slog.String("flow", id),
				slog.String("method", r.Method),
				slog.String("url", r.URL.String()),
				slog.Any("headers", helpers.NormaliseHeaders(r.Header)),
				slog.String("body", string(body)))
		}
		next.ServeHTTP(w, r)
	})
}

// screen buffers and rewrites the body of r. It returns false once it has answered the request itself.
func (g *Gateway) screen(w http.ResponseWriter, r *http.Request, logger *slog.Logger) ([]byte, bool) {
	reader := io.Reader(r.Body)
	if g.maxBodyBytes > 0 {
		reader = http.MaxBytesReader(w, r.Body, g.maxBodyBytes)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			g.reject(w, http.StatusRequestEntityTooLarge, http.StatusText(http.StatusRequestEntityTooLarge))
			return nil, false
		}
		logger.Warn("failed to read request body", slog.Any("error", err))
		g.reject(w, http.StatusBadRequest, http.StatusText(http.StatusBadRequest))
		return nil, false
	}

	data, err := decode(body)
	if err != nil {
		logger.Debug("forwarding unparsable body untouched", slog.Any("error", err))
		replaceBody(r, body)
		return body, true
	}

	if obj, isObject := data.(map[string]any); isObject {
		if prompt, found := obj[PromptField]; found && g.analyzer != nil {
			text, isString := prompt.(string)
			if !isString {
				g.reject(w, http.StatusBadRequest, fmt.Sprintf("The %q field must be a string.", PromptField))
				return nil, false
			}
			scores, err := g.analyzer.Analyze(r.Context(), text)
			if err != nil {
				logger.Error("screening failed", slog.Any("error", err))
				g.reject(w, http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable))
				return nil, false
			}
			obj[ScoresField] = scores

			if decision := Evaluate(scores); !decision.Allow {
				logger.Warn("request blocked", slog.String("reason", decision.Reason), slog.String("data", text))
				g.reject(w, http.StatusForbidden, fmt.Sprintf("The prompt was blocked because it contained %s.", decision.Reason))
				return nil, false
			}
			if g.limiter != nil && !g.limiter.Allow() {
				logger.Warn("request blocked", slog.String("reason", "screening rate limit exceeded"), slog.String("data", text))
				g.reject(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return nil, false
			}
		}
		if g.marker != "" {
			obj[g.marker] = true
		}
	}

	rewritten, err := echo.Encode(data)
	if err != nil {
		logger.Error("failed to re-encode request body", slog.Any("error", err))
		g.reject(w, http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable))
		return nil, false
	}
	replaceBody(r, rewritten)
	r.Header.Set("Content-Type", "application/json")
	return rewritten, true
}

// decode parses body as a JSON document. Blank bodies decode to an empty object.
func decode(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}
	return echo.Decode(body)
}

func replaceBody(r *http.Request, body []byte) {
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.ContentLength = int64(len(body))
	r.TransferEncoding = nil
	r.Header.Del("Transfer-Encoding")
	r.Header.Set("Content-Length", strconv.Itoa(len(body)))
}

func (g *Gateway) reject(w http.ResponseWriter, status int, reason string) {
	body, _ := echo.Encode(Rejection{Reason: reason})
	helpers.RespondHTTP(models.Response{
		Body:       body,
		Headers:    map[string]string{"content-type": helpers.ContentTypeJSON},
		StatusCode: status,
	}, nil, w)
}
