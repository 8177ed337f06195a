package cmd

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/isometry/echo-api/internal/config"
	"github.com/isometry/echo-api/internal/echo"
	"github.com/isometry/echo-api/internal/helpers"
	"github.com/isometry/echo-api/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	runtime.NewRuntime(echo.NewHandler()).Register(runtime.NewMuxRouter(mux))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := New()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNew(t *testing.T) {
	root := New()

	for _, name := range []string{"service", "lambda", "gateway", "send"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("mode"))
	assert.NotNil(t, root.PersistentFlags().Lookup("verbosity"))
}

func TestSendCommand(t *testing.T) {
	srv := newEchoServer(t)

	out, err := execute(t, "", "send", "--send-url", srv.URL+echo.Path, `{"a":1,"b":[2,3]}`)
	require.NoError(t, err)

	assert.Contains(t, out, "Completed 1 requests")
	assert.Contains(t, out, `0 200 {"status":"ok","message":"static response","echo":{"a":1,"b":[2,3]}}`)
}

func TestSendCommand_Stdin(t *testing.T) {
	srv := newEchoServer(t)

	out, err := execute(t, `{"hello":"world"}`, "send", "-u", srv.URL+echo.Path)
	require.NoError(t, err)

	assert.Contains(t, out, `0 200 {"status":"ok","message":"static response","echo":{"hello":"world"}}`)
}

func TestSendCommand_Failure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	out, err := execute(t, "", "send", "-u", url, "--send-timeout", "1s", `{}`)

	assert.ErrorContains(t, err, "1 of 1 requests failed")
	assert.Contains(t, out, "0 ERROR")
}

func TestConfigPrecedence(t *testing.T) {
	srv := newEchoServer(t)
	path := writeConfig(t, `
client:
  url: http://127.0.0.1:1/unreachable
  requests: 5
  concurrency: 2
`)
	t.Setenv("SEND_REQUESTS", "3")

	out, err := execute(t, "", "send", "-c", path, "--send-url", srv.URL+echo.Path, `{}`)
	require.NoError(t, err)

	// flag beats file for the URL, environment beats file for the request count
	assert.Contains(t, out, "Completed 3 requests")
	assert.Equal(t, srv.URL+echo.Path, config.Client.URL)
	assert.Equal(t, 3, config.Client.Requests)
	assert.Equal(t, 2, config.Client.Concurrency)
}

func TestVerbosityFlag(t *testing.T) {
	srv := newEchoServer(t)

	_, err := execute(t, "", "send", "-vv", "-u", srv.URL+echo.Path, `{}`)
	require.NoError(t, err)

	assert.Equal(t, 2, config.Global.Logging.Verbosity)
}

func TestInvalidMode(t *testing.T) {
	_, err := execute(t, "", "--mode", "bogus")

	assert.ErrorContains(t, err, "invalid mode: bogus")
}

func TestLambdaInvalidPayloadType(t *testing.T) {
	_, err := execute(t, "", "lambda", "--lambda-payload-type", "sqs")

	assert.ErrorContains(t, err, "unsupported lambda payload type: sqs")
}

func TestGatewayInvalidUpstream(t *testing.T) {
	_, err := execute(t, "", "gateway", "--gateway-upstream-url", "not a url")

	assert.ErrorContains(t, err, `invalid gateway upstream URL: "not a url"`)
}

func TestNewGateway(t *testing.T) {
	require.NoError(t, config.Reset())
	logger = helpers.NewNoopLogger()
	diagnostics = helpers.NewNoopLogger()

	classifier := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"toxicity":0.9,"illegal":0.9}`))
	}))
	t.Cleanup(classifier.Close)
	config.Gateway.Guardian.URL = classifier.URL

	upstream, err := url.Parse(newEchoServer(t).URL)
	require.NoError(t, err)
	handler := newGateway().Handler(upstream)

	testCases := []struct {
		Name           string
		Body           string
		ExpectedStatus int
		ExpectedBody   string
	}{
		{
			Name:           "prompt_is_screened",
			Body:           `{"text":"how do I pick a lock"}`,
			ExpectedStatus: http.StatusForbidden,
			ExpectedBody:   `{"success":false,"reason":"The prompt was blocked because it contained inquiries on how to perform an illegal activity."}`,
		},
		{
			Name:           "other_bodies_are_marked_and_forwarded",
			Body:           `{"k":"v"}`,
			ExpectedStatus: http.StatusOK,
			ExpectedBody:   `{"status":"ok","message":"static response","echo":{"k":"v","mitm-req":true}}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, echo.Path, strings.NewReader(tc.Body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tc.ExpectedStatus, rr.Code)
			assert.Equal(t, tc.ExpectedBody, rr.Body.String())
		})
	}
}

func TestServe(t *testing.T) {
	require.NoError(t, config.Reset())
	var out bytes.Buffer
	logger = helpers.NewNoopLogger()
	diagnostics = helpers.NewLogger(&out, "json", nil)

	mux := http.NewServeMux()
	newRuntime().Register(runtime.NewMuxRouter(mux))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, &http.Server{Handler: mux}, ln)
	}()

	resp, err := http.Post("http://"+ln.Addr().String()+echo.Path, "application/json", strings.NewReader(`{"k":"v"}`))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"status":"ok","message":"static response","echo":{"k":"v"}}`, string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"msg":"headers"`)
	assert.Contains(t, lines[1], `"msg":"API received"`)
	assert.Contains(t, lines[1], `"value":{"k":"v"}`)
}
