// Package echo implements the acknowledgement endpoint: it parses a JSON request body, records the
// received headers and body on a diagnostic sink and replies with a fixed-shape acknowledgement
// echoing the parsed body.
package echo

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/isometry/echo-api/internal/helpers"
	"github.com/isometry/echo-api/internal/models"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const (
	// Method is the only method accepted on Path.
	Method = http.MethodPost
	// Path is the route the acknowledgement is served on.
	Path = "/post"

	// StatusOK is the constant status field of every acknowledgement.
	StatusOK = "ok"
	// StaticMessage is the constant message field of every acknowledgement.
	StaticMessage = "static response"

	// DefaultMaxBodyBytes caps request bodies at 100 KiB.
	DefaultMaxBodyBytes int64 = 100 << 10

	// LabelHeaders labels the diagnostic record carrying the request headers.
	LabelHeaders = "headers"
	// LabelBody labels the diagnostic record carrying the parsed request body.
	LabelBody = "API received"
)

// Acknowledgement is the response body returned for every accepted request.
type Acknowledgement struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Echo    any    `json:"echo"`
}

// Option configures a Handler.
type Option func(*Handler)

// Handler turns a request into an acknowledgement. It holds no per-request state and is safe for concurrent use.
type Handler struct {
	logger       *slog.Logger
	sink         Sink
	maxBodyBytes int64
	throttle     *rate.Sometimes
}

// NewHandler returns a Handler. Without options it discards diagnostics and caps bodies at DefaultMaxBodyBytes.
func NewHandler(options ...Option) *Handler {
	_inst := &Handler{
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range options {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	if _inst.sink == nil {
		_inst.sink = NopSink{}
	}
	if _inst.throttle == nil {
		_inst.throttle = helpers.NewThrottle(time.Minute)
	}
	return _inst
}

// MaxBodyBytes returns the body size limit. Zero or less means unlimited.
func (h *Handler) MaxBodyBytes() int64 {
	return h.maxBodyBytes
}

// Process parses the request body, records the headers and the parsed body, and builds the acknowledgement.
// A failed request returns a response carrying the matching status code alongside the error.
func (h *Handler) Process(ctx context.Context, req models.Request) (models.Response, error) {
	body, err := h.parse(req)
	if err != nil {
		h.logger.Debug("rejecting request body", slog.Any("error", err))
		return failure(err)
	}

	h.sink.Record(ctx, LabelHeaders, req.Headers)
	h.sink.Record(ctx, LabelBody, body)

	payload, err := Encode(Acknowledgement{
		Status:  StatusOK,
		Message: StaticMessage,
		Echo:    body,
	})
	if err != nil {
		h.logger.Error("failed to encode acknowledgement", slog.Any("error", err))
		return failure(err)
	}

	return models.Response{
		Body:       payload,
		Headers:    map[string]string{"content-type": helpers.ContentTypeJSON},
		StatusCode: http.StatusOK,
	}, nil
}

// IsJSON reports whether a body sent with contentType is parsed. Other bodies are neither read nor size-checked.
func IsJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

func (h *Handler) parse(req models.Request) (any, error) {
	contentType := req.Headers["content-type"]
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "application/json" {
		if len(req.Body) > 0 {
			h.throttle.Do(func() {
				h.logger.Warn("ignoring body with unsupported content type", slog.String("content-type", contentType))
			})
		}
		return map[string]any{}, nil
	}

	enc, err := lookupCharset(cmp.Or(params["charset"], "utf-8"))
	if err != nil {
		return nil, err
	}
	if h.maxBodyBytes > 0 && int64(len(req.Body)) > h.maxBodyBytes {
		return nil, &TooLargeError{Limit: h.maxBodyBytes}
	}
	body, err := toUTF8(req.Body, enc)
	if err != nil {
		return nil, err
	}
	return Decode(body)
}

// Decode parses body as a strict JSON document. An empty body decodes to an empty object; otherwise the
// document must be a single object or array. Numbers keep their literal representation.
func Decode(body []byte) (any, error) {
	if len(body) == 0 {
		return map[string]any{}, nil
	}

	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, &ParseError{Cause: errors.New("unexpected end of JSON input")}
	}
	if first := trimmed[0]; first != '{' && first != '[' {
		return nil, &ParseError{Cause: errors.Errorf("unexpected token %q at top level", first)}
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &ParseError{Cause: err}
	}
	if tok, err := dec.Token(); err == nil {
		return nil, &ParseError{Cause: errors.Errorf("unexpected %v after top-level value", tok)}
	} else if !errors.Is(err, io.EOF) {
		return nil, &ParseError{Cause: err}
	}
	return v, nil
}

// Encode marshals v without HTML escaping and without a trailing newline. Map keys are sorted, so equal
// values always encode to identical bytes.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "failed to encode acknowledgement")
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func failure(err error) (models.Response, error) {
	status := StatusCode(err)
	return models.Response{
		Body:       []byte(http.StatusText(status)),
		StatusCode: status,
	}, err
}
