package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"mercator-hq/restconnector/pkg/telemetry/tracing"
)

// TraceIDHeader carries the trace id of the server span in responses.
const TraceIDHeader = "X-Trace-ID"

// TracingMiddleware continues the caller's trace from the W3C Trace
// Context headers and serves the request inside a server span. Responses
// with a 5xx status mark the span as failed. A nil tracer disables it.
func TracingMiddleware(tracer *tracing.Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !tracer.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := tracing.Extract(r.Context(), r.Header)
			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					tracing.AttrHTTPMethod.String(r.Method),
					tracing.AttrURLPath.String(r.URL.Path),
				),
			)
			defer span.End()

			if id := tracing.TraceID(ctx); id != "" {
				w.Header().Set(TraceIDHeader, id)
			}

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r.WithContext(ctx))

			span.SetAttributes(tracing.AttrHTTPStatus.Int(rw.statusCode))
			tracing.SetRequestID(span, w.Header().Get(RequestIDHeader))
			if rw.statusCode >= http.StatusInternalServerError {
				tracing.SetStatus(span, errStatus(rw.statusCode))
			}
		})
	}
}

type errStatus int

func (e errStatus) Error() string {
	return http.StatusText(int(e))
}
