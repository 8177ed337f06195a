package gateway

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/isometry/echo-api/internal/helpers"
	"github.com/isometry/echo-api/internal/models"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// NewLimiter returns a token bucket admitting n requests per period, starting full. A non-positive n or
// period yields nil, which disables limiting.
func NewLimiter(n int, period time.Duration) *rate.Limiter {
	if n <= 0 || period <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(period/time.Duration(n)), n)
}

// Handler returns the screening middleware in front of a reverse proxy to upstream.
func (g *Gateway) Handler(upstream *url.URL) http.Handler {
	return g.Middleware(g.NewProxy(upstream))
}

// NewProxy returns a reverse proxy forwarding to upstream. Every upstream response is recorded on the event
// logger and transport failures are answered with 502.
func (g *Gateway) NewProxy(upstream *url.URL) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.SetXForwarded()
		},
		ModifyResponse: g.recordResponse,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			g.logger.Error("proxy error",
				slog.Any("error", err),
				slog.String("upstream", upstream.String()),
				slog.String("path", r.URL.Path),
			)
			helpers.RespondHTTP(models.Response{StatusCode: http.StatusBadGateway}, err, w)
		},
	}
}

func (g *Gateway) recordResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return errors.Wrap(err, "failed to read upstream response")
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	g.events.Info("response",
		slog.String("flow", FlowID(resp.Request.Context())),
		slog.Int("status", resp.StatusCode),
		slog.Any("headers", helpers.NormaliseHeaders(resp.Header)),
		slog.String("body", string(body)))
	return nil
}
