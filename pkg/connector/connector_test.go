package connector

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mercator-hq/restconnector/internal/mockapi"
	"mercator-hq/restconnector/pkg/config"
	"mercator-hq/restconnector/pkg/telemetry/tracing"
	"mercator-hq/restconnector/pkg/template"
)

const usersConfig = `
connector:
  name: test
  base_url: "{{URL}}/api"
  retry_backoff: 1ms
operations:
  - name: users
    template:
      method: GET
      url: "{{URL}}/api/users/{!id}"
      headers:
        X-Api-Key: "{apiKey}"
      query:
        verbose: "{verbose=false:boolean}"
    functions:
      findUser: [id, apiKey, {name: verbose, source: header}]
  - name: search
    template:
      method: POST
      url: "{{URL}}/api/search"
      body:
        term: "{term}"
        size: "{size=10:number}"
    functions:
      search: [term, size]
`

func parseConfig(t *testing.T, yamlText string, srv *mockapi.Server) *config.Config {
	t.Helper()
	text := yamlText
	if srv != nil {
		text = strings.ReplaceAll(text, "{{URL}}", srv.URL())
	}
	cfg, err := config.Parse([]byte(text), t.TempDir())
	require.NoError(t, err)
	return cfg
}

func newTestConnector(t *testing.T, yamlText string, opts ...Option) (*Connector, *mockapi.Server) {
	t.Helper()
	srv := mockapi.NewServer("users", "search")
	t.Cleanup(srv.Close)

	c, err := New(parseConfig(t, yamlText, srv), opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, srv
}

func TestNew_FunctionMetadata(t *testing.T) {
	c, _ := newTestConnector(t, usersConfig)

	var names []string
	for _, fn := range c.Functions() {
		names = append(names, fn.Name)
	}
	assert.Equal(t, []string{"findUser", "invoke", "search"}, names)

	fn, ok := c.Function("findUser")
	require.True(t, ok)
	assert.Equal(t, "users", fn.Operation)
	assert.Equal(t, []Arg{
		{Name: "id", Type: template.TypeString, Required: true, Source: SourcePath},
		{Name: "apiKey", Type: template.TypeString, Source: SourceHeader},
		{Name: "verbose", Type: template.TypeBoolean, Source: SourceHeader, Default: false},
	}, fn.Accepts)
	assert.Equal(t, HTTP{Verb: "get", Path: "/findUser/:id"}, fn.HTTP)
	assert.Equal(t, Returns{Arg: "data", Type: "object", Root: true}, fn.Returns)
	assert.Equal(t, []string{"id", "apiKey", "verbose"}, fn.Params())

	search, ok := c.Function("search")
	require.True(t, ok)
	assert.Equal(t, HTTP{Verb: "post", Path: "/search"}, search.HTTP)
	assert.Equal(t, SourceBody, search.Accepts[0].Source)
	assert.Equal(t, template.TypeNumber, search.Accepts[1].Type)
	assert.Equal(t, float64(10), search.Accepts[1].Default)

	invoke, ok := c.Function(InvokeFunction)
	require.True(t, ok)
	assert.Equal(t, "search", invoke.Operation)
	assert.Equal(t, HTTP{Verb: "post", Path: "/invoke"}, invoke.HTTP)
	assert.Equal(t, []Arg{{Name: "request", Type: template.TypeObject, Source: SourceBody}}, invoke.Accepts)

	ops := c.Operations()
	require.Len(t, ops, 2)
	assert.Equal(t, []string{"findUser"}, ops[0].Functions)
}

func TestCall(t *testing.T) {
	c, srv := newTestConnector(t, usersConfig)
	srv.Seed("users", map[string]any{"id": float64(1), "name": "Ray"})
	ctx := context.Background()

	res, err := c.Call(ctx, "findUser", 1, "secret")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode())
	assert.Equal(t, "Ray", res.Body.(map[string]any)["name"])

	last, ok := srv.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "/api/users/1", last.Path)
	assert.Equal(t, "secret", last.Header.Get("X-Api-Key"))
	assert.Equal(t, "false", last.Query.Get("verbose"))

	_, err = c.Call(ctx, "search", "shoes")
	require.NoError(t, err)
	last, _ = srv.LastRequest()
	body, err := last.JSON()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"term": "shoes", "size": float64(10)}, body)
}

func TestCall_Errors(t *testing.T) {
	c, srv := newTestConnector(t, usersConfig)
	ctx := context.Background()

	_, err := c.Call(ctx, "nope")
	assert.ErrorIs(t, err, ErrUnknownFunction)

	_, err = c.Call(ctx, "findUser")
	assert.ErrorIs(t, err, template.ErrMissingRequiredVariable)
	assert.Equal(t, 0, srv.RequestCount())

	_, err = c.Call(ctx, "findUser", 42)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestInvoke(t *testing.T) {
	c, srv := newTestConnector(t, usersConfig)
	ctx := context.Background()

	_, err := c.Invoke(ctx, template.Params{"term": "boots", "size": 3})
	require.NoError(t, err)
	last, _ := srv.LastRequest()
	body, err := last.JSON()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"term": "boots", "size": float64(3)}, body)

	srv.Seed("users", map[string]any{"id": "u1", "name": "Joe"})
	op, ok := c.Operation("users")
	require.True(t, ok)
	res, err := op.Invoke(ctx, template.Params{"id": "u1"})
	require.NoError(t, err)
	assert.Equal(t, "Joe", res.Body.(map[string]any)["name"])

	_, err = c.Call(ctx, InvokeFunction, "not an object")
	assert.Error(t, err)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "duplicate function",
			yaml: `
operations:
  - template: {url: "http://localhost/a"}
    functions: {get: []}
  - template: {url: "http://localhost/b"}
    functions: {get: []}
`,
			want: "already defined",
		},
		{
			name: "reserved name",
			yaml: `
operations:
  - template: {url: "http://localhost/a"}
    functions: {invoke: []}
`,
			want: "reserved",
		},
		{
			name: "missing template",
			yaml: `
operations:
  - functions: {get: []}
`,
			want: "no template",
		},
		{
			name: "invalid override map",
			yaml: `
operations:
  - template: {url: "http://localhost/{a}", variables: nope}
    functions: {get: [a]}
`,
			want: "override map must be an object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(parseConfig(t, tt.yaml, nil))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := New(nil)
	assert.Error(t, err)
}

type fakeRecorder struct {
	mu       sync.Mutex
	builds   []string
	requests []int
}

func (r *fakeRecorder) RecordRequest(_, _ string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, status)
}

func (r *fakeRecorder) RecordRetry(string) {}

func (r *fakeRecorder) RecordBuild(operation string, _ error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builds = append(r.builds, operation)
}

func TestWithRecorder(t *testing.T) {
	rec := &fakeRecorder{}
	c, srv := newTestConnector(t, usersConfig, WithRecorder(rec))
	srv.Seed("users", map[string]any{"id": float64(1)})

	_, err := c.Call(context.Background(), "findUser", 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"users"}, rec.builds)
	assert.Equal(t, []int{http.StatusOK}, rec.requests)
}

func TestWithTracer(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer, err := tracing.New(&config.TracingConfig{
		Enabled:     true,
		ServiceName: "test",
		Sampler:     tracing.SamplerAlways,
		Exporter:    "otlp",
	}, "test", tracing.WithSpanProcessor(recorder))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })

	c, srv := newTestConnector(t, usersConfig, WithTracer(tracer))
	srv.Seed("users", map[string]any{"id": float64(1)})

	_, err = c.Call(context.Background(), "findUser", 1)
	require.NoError(t, err)
	_, err = c.Call(context.Background(), "findUser", 99)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "findUser", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	require.NotEmpty(t, spans[0].Events())
	assert.Equal(t, tracing.AttemptEvent, spans[0].Events()[0].Name)

	last, ok := srv.LastRequest()
	require.True(t, ok)
	assert.Contains(t, last.Header.Get("traceparent"), spans[1].SpanContext().TraceID().String())
}
