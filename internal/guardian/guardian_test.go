package guardian_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/isometry/echo-api/internal/guardian"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newClassifier serves /analyze, failing the first failures calls with a 500.
func newClassifier(t *testing.T, failures int32, reply string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, guardian.AnalyzePath, r.URL.Path)

		var req struct {
			Text string `json:"text"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello there", req.Text)

		if n <= failures {
			http.Error(w, `{"detail":"Classification failed"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestAnalyze(t *testing.T) {
	testCases := []struct {
		Name          string
		Failures      int32
		Reply         string
		Expected      guardian.Scores
		ExpectedCalls int32
		ExpectError   bool
	}{
		{
			Name:          "first_attempt",
			Reply:         `{"toxicity":0.1,"sexual":0.2,"violence":0.3,"illegal":0.4}`,
			Expected:      guardian.Scores{Toxicity: 0.1, Sexual: 0.2, Violence: 0.3, Illegal: 0.4},
			ExpectedCalls: 1,
		},
		{
			Name:          "missing_categories_score_zero",
			Reply:         `{"violence":0.9}`,
			Expected:      guardian.Scores{Violence: 0.9},
			ExpectedCalls: 1,
		},
		{
			Name:          "recovers_on_last_attempt",
			Failures:      2,
			Reply:         `{"toxicity":0.5}`,
			Expected:      guardian.Scores{Toxicity: 0.5},
			ExpectedCalls: 3,
		},
		{
			Name:          "gives_up_after_max_attempts",
			Failures:      10,
			ExpectedCalls: 3,
			ExpectError:   true,
		},
		{
			Name:          "malformed_reply_is_retried",
			Reply:         `not json`,
			ExpectedCalls: 3,
			ExpectError:   true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			srv, calls := newClassifier(t, tc.Failures, tc.Reply)
			c := guardian.New(guardian.WithURL(srv.URL+"/"), guardian.WithRetry(3, time.Millisecond))

			scores, err := c.Analyze(context.Background(), "hello there")

			assert.Equal(t, tc.ExpectedCalls, calls.Load())
			if tc.ExpectError {
				assert.ErrorContains(t, err, "classification failed after 3 attempts")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.Expected, scores)
		})
	}
}

func TestAnalyze_SingleAttempt(t *testing.T) {
	srv, calls := newClassifier(t, 1, `{}`)

	_, err := guardian.New(guardian.WithURL(srv.URL), guardian.WithRetry(0, time.Millisecond)).
		Analyze(context.Background(), "hello there")

	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAnalyze_ContextCancelled(t *testing.T) {
	srv, calls := newClassifier(t, 10, `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := guardian.New(guardian.WithURL(srv.URL), guardian.WithRetry(3, time.Hour)).Analyze(ctx, "hello there")

	assert.Error(t, err)
	assert.Zero(t, calls.Load())
}

func TestAnalyze_WithHTTPClient(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"illegal":0.8}`))
	}))
	t.Cleanup(srv.Close)

	scores, err := guardian.New(guardian.WithURL(srv.URL), guardian.WithHTTPClient(srv.Client())).
		Analyze(context.Background(), "anything")

	require.NoError(t, err)
	assert.InDelta(t, 0.8, scores.Illegal, 1e-9)
}
