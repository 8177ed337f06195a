package echo

import (
	"context"
	"log/slog"
)

// Sink receives the diagnostic records emitted for every accepted request.
// Implementations must be safe for concurrent use.
type Sink interface {
	Record(ctx context.Context, label string, value any)
}

// LogSink writes each record as an Info-level slog record with the label as message.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a Sink backed by logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Record implements Sink.
func (s *LogSink) Record(ctx context.Context, label string, value any) {
	s.logger.LogAttrs(ctx, slog.LevelInfo, label, slog.Any("value", value))
}

// NopSink discards every record.
type NopSink struct{}

// Record implements Sink.
func (NopSink) Record(context.Context, string, any) {}
