package helpers_test

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/isometry/echo-api/internal/helpers"
	"github.com/stretchr/testify/assert"
)

func TestPtr(t *testing.T) {
	testCases := []struct {
		Name  string
		Input any
	}{
		{
			Name:  "nil",
			Input: nil,
		},
		{
			Name:  "string",
			Input: "v",
		},
		{
			Name:  "int",
			Input: 1,
		},
		{
			Name:  "map",
			Input: map[string]string{"k": "v"},
		},
		{
			Name:  "nil_pointer",
			Input: (*string)(nil),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			if tc.Input == nil {
				assert.Nil(t, helpers.Ptr(tc.Input))
			} else {
				assert.Equal(t, &tc.Input, helpers.Ptr(tc.Input))
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	testCases := []struct {
		Name     string
		Format   string
		Expected string
	}{
		{
			Name:     "json",
			Format:   "json",
			Expected: `"msg":"hello"`,
		},
		{
			Name:     "json_mixed_case",
			Format:   " JSON ",
			Expected: `"msg":"hello"`,
		},
		{
			Name:     "text",
			Format:   "text",
			Expected: "msg=hello",
		},
		{
			Name:     "unknown_defaults_to_text",
			Format:   "yaml",
			Expected: "msg=hello",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			var buf bytes.Buffer
			helpers.NewLogger(&buf, tc.Format, &slog.HandlerOptions{}).Info("hello")
			assert.Contains(t, buf.String(), tc.Expected)
		})
	}
}

func TestNewThrottle(t *testing.T) {
	throttle := helpers.NewThrottle(time.Hour)

	calls := 0
	for range 5 {
		throttle.Do(func() { calls++ })
	}

	assert.Equal(t, 1, calls)
}
