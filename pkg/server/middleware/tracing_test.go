package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/restconnector/pkg/config"
	"mercator-hq/restconnector/pkg/telemetry/tracing"
)

func newRecordingTracer(t *testing.T) (*tracing.Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tracer, err := tracing.New(&config.TracingConfig{
		Enabled:     true,
		ServiceName: "test",
		Sampler:     tracing.SamplerAlways,
		Exporter:    "otlp",
	}, "test", tracing.WithSpanProcessor(recorder))
	if err != nil {
		t.Fatalf("tracing.New: %v", err)
	}
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })
	return tracer, recorder
}

func TestTracingMiddleware(t *testing.T) {
	tracer, recorder := newRecordingTracer(t)

	var inner trace.SpanContext
	handler := TracingMiddleware(tracer)(RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = trace.SpanContextFromContext(r.Context())
		w.WriteHeader(http.StatusBadGateway)
	})))

	req := httptest.NewRequest(http.MethodGet, "/rpc/findUser/1", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := inner.TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("handler trace id = %s, want the caller's", got)
	}
	if got := w.Header().Get(TraceIDHeader); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("%s = %q", TraceIDHeader, got)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "GET /rpc/findUser/1" {
		t.Errorf("span name = %q", span.Name())
	}
	if span.SpanKind() != trace.SpanKindServer {
		t.Errorf("span kind = %v", span.SpanKind())
	}
	if span.Parent().SpanID().String() != "00f067aa0ba902b7" {
		t.Errorf("parent span = %s", span.Parent().SpanID())
	}
	if span.Status().Code != codes.Error {
		t.Errorf("status = %v, want error for 502", span.Status().Code)
	}

	attrs := map[string]string{}
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs[string(tracing.AttrHTTPStatus)] != "502" {
		t.Errorf("status attribute = %q", attrs[string(tracing.AttrHTTPStatus)])
	}
	if attrs[string(tracing.AttrRequestID)] == "" {
		t.Error("request id attribute missing")
	}
}

func TestTracingMiddlewareDisabled(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	w := httptest.NewRecorder()
	TracingMiddleware(nil)(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatal("next handler not called")
	}
	if w.Header().Get(TraceIDHeader) != "" {
		t.Error("trace id set with tracing disabled")
	}
}
