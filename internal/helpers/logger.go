package helpers

import (
	"io"
	"log/slog"
	"strings"
)

// NewNoopLogger returns a logger that discards every record.
func NewNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewLogger returns a slog logger writing to w. Format "json" selects the JSON handler, anything else the text handler.
func NewLogger(w io.Writer, format string, opts *slog.HandlerOptions) *slog.Logger {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
