package echo_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/isometry/echo-api/internal/echo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogSink_Record(t *testing.T) {
	var buf bytes.Buffer
	sink := echo.NewLogSink(slog.New(slog.NewJSONHandler(&buf, nil)))

	sink.Record(context.Background(), echo.LabelBody, map[string]any{"a": json.Number("1")})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "INFO", line["level"])
	assert.Equal(t, echo.LabelBody, line["msg"])
	assert.Equal(t, map[string]any{"a": float64(1)}, line["value"])
}

func TestNopSink(t *testing.T) {
	assert.NotPanics(t, func() {
		echo.NopSink{}.Record(context.Background(), echo.LabelHeaders, nil)
	})
}
