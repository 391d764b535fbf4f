package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/restconnector/internal/mockapi"
	"mercator-hq/restconnector/pkg/config"
	"mercator-hq/restconnector/pkg/connector"
	"mercator-hq/restconnector/pkg/server/middleware"
	"mercator-hq/restconnector/pkg/telemetry/metrics"
)

const testConfig = `
connector:
  name: users-api
  retry_backoff: 1ms
server:
  base_path: /rpc
operations:
  - name: users
    template:
      method: GET
      url: "{{URL}}/api/users/{!id}"
      headers:
        X-Api-Key: "{apiKey}"
    functions:
      findUser: [id, apiKey]
  - name: search
    template:
      method: POST
      url: "{{URL}}/api/search"
      body:
        term: "{!term}"
        size: "{size=10:number}"
    functions:
      search: [term, size]
`

type testEnv struct {
	upstream *mockapi.Server
	cfg      *config.Config
	server   *Server
	http     *httptest.Server
	metrics  *metrics.Collector
}

func newTestConfig(t *testing.T, upstream *mockapi.Server, text string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(strings.ReplaceAll(text, "{{URL}}", upstream.URL())), t.TempDir())
	require.NoError(t, err)
	return cfg
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	upstream := mockapi.NewServer("users", "search")
	t.Cleanup(upstream.Close)

	cfg := newTestConfig(t, upstream, testConfig)
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	conn, err := connector.New(cfg, connector.WithRecorder(collector))
	require.NoError(t, err)

	srv := NewServer(&cfg.Server, conn, WithMetrics(collector))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{upstream: upstream, cfg: cfg, server: srv, http: ts, metrics: collector}
}

func (e *testEnv) do(t *testing.T, method, path, body string, header http.Header) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.http.URL+path, reader)
	require.NoError(t, err)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(data) > 0 {
		_ = json.Unmarshal(data, &decoded)
	}
	return resp, decoded
}

func TestFunctionRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.upstream.Seed("users", map[string]any{"id": float64(1), "name": "Ray"})

	t.Run("path and header arguments", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/rpc/findUser/1", "", http.Header{"apiKey": {"k-123"}})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Ray", body["name"])
		assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))

		last, _ := env.upstream.LastRequest()
		assert.Equal(t, "/api/users/1", last.Path)
		assert.Equal(t, "k-123", last.Header.Get("X-Api-Key"))
	})

	t.Run("body arguments", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/rpc/search", `{"term":"shoes","size":"5"}`, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		last, _ := env.upstream.LastRequest()
		sent, err := last.JSON()
		require.NoError(t, err)
		assert.Equal(t, "shoes", sent["term"])
		assert.Equal(t, float64(5), sent["size"])
	})

	t.Run("invoke", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/rpc/invoke", `{"term":"boots"}`, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		last, _ := env.upstream.LastRequest()
		sent, err := last.JSON()
		require.NoError(t, err)
		assert.Equal(t, "boots", sent["term"])
		assert.Equal(t, float64(10), sent["size"])
	})

	t.Run("openapi document", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/rpc/openapi.json", "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		paths := body["paths"].(map[string]any)
		assert.Contains(t, paths, "/rpc/findUser/{id}")
		assert.Contains(t, paths, "/rpc/search")
	})
}

func TestFunctionErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		status  int
		message string
	}{
		{
			name:    "missing required argument",
			method:  http.MethodPost,
			path:    "/rpc/search",
			body:    `{}`,
			status:  http.StatusBadRequest,
			message: "term",
		},
		{
			name:    "invalid number",
			method:  http.MethodPost,
			path:    "/rpc/search",
			body:    `{"term":"x","size":"many"}`,
			status:  http.StatusBadRequest,
			message: "must be a number",
		},
		{
			name:    "invalid body",
			method:  http.MethodPost,
			path:    "/rpc/search",
			body:    `[1,2]`,
			status:  http.StatusBadRequest,
			message: "JSON object",
		},
		{
			name:   "upstream not found",
			method: http.MethodGet,
			path:   "/rpc/findUser/42",
			status: http.StatusNotFound,
		},
		{
			name:    "unknown route",
			method:  http.MethodGet,
			path:    "/rpc/nothing",
			status:  http.StatusNotFound,
			message: "no function",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, tt.method, tt.path, tt.body, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
			require.Contains(t, body, "error")
			errBody := body["error"].(map[string]any)
			assert.Equal(t, float64(tt.status), errBody["status"])
			assert.Contains(t, errBody["message"], tt.message)
		})
	}

	t.Run("upstream error details", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/rpc/findUser/42", "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		details := body["error"].(map[string]any)["details"].(map[string]any)
		assert.Contains(t, details, "error")
	})

	t.Run("upstream server error passes through", func(t *testing.T) {
		env.upstream.SetResponse(http.MethodGet, "/api/users/7", mockapi.ServerError())
		resp, _ := env.do(t, http.MethodGet, "/rpc/findUser/7", "", nil)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("upstream unreachable", func(t *testing.T) {
		upstream := mockapi.NewServer("users")
		cfg := newTestConfig(t, upstream, testConfig)
		upstream.Close()

		conn, err := connector.New(cfg)
		require.NoError(t, err)
		rec := httptest.NewRecorder()
		NewServer(&cfg.Server, conn).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rpc/findUser/1", nil))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, body = env.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", body["status"])

	env.do(t, http.MethodPost, "/rpc/search", `{"term":"x"}`, nil)

	resp, err := http.Get(env.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `restconnector_server_calls_total{function="search",status="200"} 1`)
	assert.Contains(t, string(data), "restconnector_http_requests_total")
	assert.Contains(t, string(data), "restconnector_template_builds_total")
}

func TestNoConnector(t *testing.T) {
	cfg := config.Default()
	srv := NewServer(&cfg.Server, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReload(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/rpc/listUsers", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	cfg := newTestConfig(t, env.upstream, `
operations:
  - template:
      url: "{{URL}}/api/users"
    functions:
      listUsers: []
`)
	conn, err := connector.New(cfg)
	require.NoError(t, err)
	env.server.Reload(conn)
	assert.Same(t, conn, env.server.Connector())

	env.upstream.Seed("users", map[string]any{"id": float64(1)})
	resp, _ = env.do(t, http.MethodGet, "/rpc/listUsers", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/rpc/findUser/1", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServeAndShutdown(t *testing.T) {
	env := newTestEnv(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.server.Serve(ctx, ln) }()

	require.Eventually(t, env.server.IsRunning, time.Second, 10*time.Millisecond)
	resp, err := http.Get("http://" + env.server.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.False(t, env.server.IsRunning())
}

func TestErrorsRedactSecrets(t *testing.T) {
	t.Setenv("RESTCONNECTOR_SECRET_USERS_KEY", "s3cr3t-value")

	upstream := mockapi.NewServer("users")
	dir := t.TempDir()
	path := filepath.Join(dir, "connector.yaml")
	text := strings.ReplaceAll(`
connector:
  retry_backoff: 1ms
operations:
  - template:
      url: "{{URL}}/api/users?key=${secret:users-key}"
    functions:
      listUsers: []
`, "{{URL}}", upstream.URL())
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	upstream.Close()

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	conn, err := connector.New(cfg)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	NewServer(&cfg.Server, conn).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/listUsers", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "s3cr3t-value")
	assert.Contains(t, rec.Body.String(), "[REDACTED]")
}
