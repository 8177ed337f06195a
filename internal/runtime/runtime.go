// Package runtime adapts the echo handler to the transports it is served on: net/http and AWS Lambda events.
package runtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/isometry/echo-api/internal/echo"
	"github.com/isometry/echo-api/internal/helpers"
	"github.com/isometry/echo-api/internal/models"
	"github.com/pkg/errors"
)

// Lambda payload types accepted by HandleEvent.
const (
	PayloadAPIGatewayV1 = "api-gateway-v1"
	PayloadAPIGatewayV2 = "api-gateway-v2"
	PayloadLambdaURL    = "lambda-url"
)

// PayloadTypes lists every payload type HandleEvent understands.
var PayloadTypes = []string{PayloadAPIGatewayV1, PayloadAPIGatewayV2, PayloadLambdaURL}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the operational logger for the runtime.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithPayloadType selects the Lambda event shape decoded by HandleEvent.
func WithPayloadType(payloadType string) Option {
	return func(r *Runtime) {
		r.payloadType = payloadType
	}
}

// Runtime serves an echo.Handler over net/http and as a Lambda event handler.
type Runtime struct {
	*echo.Handler
	logger      *slog.Logger
	payloadType string
}

// NewRuntime creates a new runtime instance. Lambda events default to the API Gateway v2 payload type.
func NewRuntime(handler *echo.Handler, opts ...Option) *Runtime {
	_inst := &Runtime{Handler: handler, payloadType: PayloadAPIGatewayV2}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	return _inst
}

// Register mounts the runtime on the echo route.
func (r *Runtime) Register(router Router) {
	router.Handle(echo.Method, echo.Path, r)
}

// ServeHTTP is the HTTP handler for the runtime.
func (r *Runtime) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	if req.Method != echo.Method {
		r.logger.Debug("rejecting HTTP request...", slog.Any("requestor", req.RemoteAddr), "reason", "method not allowed", slog.Any("method", req.Method))
		resp.Header().Set("Allow", echo.Method)
		helpers.RespondHTTP(models.Response{StatusCode: http.StatusMethodNotAllowed}, nil, resp)
		return
	}

	r.logger.Debug("received HTTP request...", slog.Any("requestor", req.RemoteAddr), slog.Any("path", req.URL.Path))
	payload, err := io.ReadAll(r.bodyReader(req))
	if err != nil {
		r.logger.Error("failed to read request body", slog.Any("error", err))
		helpers.RespondHTTP(models.Response{StatusCode: http.StatusInternalServerError}, err, resp)
		return
	}

	headers := helpers.NormaliseHeaders(req.Header)
	if _, found := headers["host"]; !found && req.Host != "" {
		headers["host"] = req.Host
	}

	result, err := r.Handler.Process(req.Context(), models.Request{Body: payload, Headers: headers})
	if err != nil {
		r.logger.Info("request rejected", slog.Int("status", result.StatusCode), slog.Any("error", err))
	}
	helpers.RespondHTTP(result, err, resp)
}

// bodyReader bounds how much of the request body is buffered. One byte past the limit is enough for Process
// to reject an oversized body, and bodies that are not parsed are only checked for presence.
func (r *Runtime) bodyReader(req *http.Request) io.Reader {
	if !echo.IsJSON(req.Header.Get("Content-Type")) {
		return io.LimitReader(req.Body, 1)
	}
	if limit := r.Handler.MaxBodyBytes(); limit > 0 {
		return io.LimitReader(req.Body, limit+1)
	}
	return req.Body
}

// HandleEvent is the Lambda handler for the runtime. The payload is decoded according to the configured
// payload type and answered with the matching response shape.
func (r *Runtime) HandleEvent(ctx context.Context, payload json.RawMessage) (any, error) {
	r.logger.Info("received lambda event", slog.String("payloadType", r.payloadType))

	switch r.payloadType {
	case PayloadAPIGatewayV1:
		var event events.APIGatewayProxyRequest
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, errors.Wrap(err, "failed to decode API Gateway v1 event")
		}
		headers := helpers.LowerHeaders(event.Headers)
		if len(event.MultiValueHeaders) > 0 {
			headers = helpers.NormaliseHeaders(event.MultiValueHeaders)
		}
		result := r.invoke(ctx, event.HTTPMethod, event.Path, event.Body, event.IsBase64Encoded, headers)
		return events.APIGatewayProxyResponse{
			StatusCode: result.StatusCode,
			Headers:    result.Headers,
			Body:       string(result.Body),
		}, nil
	case PayloadAPIGatewayV2:
		var event events.APIGatewayV2HTTPRequest
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, errors.Wrap(err, "failed to decode API Gateway v2 event")
		}
		headers := withCookies(helpers.LowerHeaders(event.Headers), event.Cookies)
		result := r.invoke(ctx, event.RequestContext.HTTP.Method, event.RawPath, event.Body, event.IsBase64Encoded, headers)
		return events.APIGatewayV2HTTPResponse{
			StatusCode: result.StatusCode,
			Headers:    result.Headers,
			Body:       string(result.Body),
		}, nil
	case PayloadLambdaURL:
		var event events.LambdaFunctionURLRequest
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, errors.Wrap(err, "failed to decode Lambda function URL event")
		}
		headers := withCookies(helpers.LowerHeaders(event.Headers), event.Cookies)
		result := r.invoke(ctx, event.RequestContext.HTTP.Method, event.RawPath, event.Body, event.IsBase64Encoded, headers)
		return events.LambdaFunctionURLResponse{
			StatusCode: result.StatusCode,
			Headers:    result.Headers,
			Body:       string(result.Body),
		}, nil
	default:
		return nil, errors.Errorf("unsupported lambda payload type: %s", r.payloadType)
	}
}

// invoke runs the handler for a decoded Lambda event. The gateway has already routed the request, so an
// empty path is accepted and a stage prefix in front of the echo path is tolerated.
func (r *Runtime) invoke(ctx context.Context, method, path, body string, isBase64 bool, headers map[string]string) models.Response {
	if method != "" && !strings.EqualFold(method, echo.Method) {
		r.logger.Debug("rejecting lambda event...", "reason", "method not allowed", slog.String("method", method))
		return helpers.Finalise(models.Response{
			StatusCode: http.StatusMethodNotAllowed,
			Headers:    map[string]string{"allow": echo.Method},
		}, nil)
	}
	if path != "" && path != echo.Path && !strings.HasSuffix(path, echo.Path) {
		r.logger.Debug("rejecting lambda event...", "reason", "not found", slog.String("path", path))
		return helpers.Finalise(models.Response{StatusCode: http.StatusNotFound}, nil)
	}

	raw := []byte(body)
	if isBase64 {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			err = &echo.ParseError{Cause: errors.Wrap(err, "invalid base64 body")}
			return helpers.Finalise(models.Response{StatusCode: http.StatusBadRequest, Body: []byte(http.StatusText(http.StatusBadRequest))}, err)
		}
		raw = decoded
	}

	result, err := r.Handler.Process(ctx, models.Request{Body: raw, Headers: headers})
	if err != nil {
		r.logger.Info("request rejected", slog.Int("status", result.StatusCode), slog.Any("error", err))
	}
	return helpers.Finalise(result, err)
}

func withCookies(headers map[string]string, cookies []string) map[string]string {
	if len(cookies) > 0 {
		headers["cookie"] = strings.Join(cookies, "; ")
	}
	return headers
}
