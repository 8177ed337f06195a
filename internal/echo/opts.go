package echo

import (
	"log/slog"

	"golang.org/x/time/rate"
)

// WithLogger sets the operational logger for the handler.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithSink sets the diagnostic sink receiving the headers and body records.
func WithSink(sink Sink) Option {
	return func(h *Handler) {
		h.sink = sink
	}
}

// WithMaxBodyBytes sets the body size limit. Zero or less disables the limit.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		h.maxBodyBytes = n
	}
}

// WithThrottle sets the limiter used for repetitive warnings.
func WithThrottle(throttle *rate.Sometimes) Option {
	return func(h *Handler) {
		h.throttle = throttle
	}
}
