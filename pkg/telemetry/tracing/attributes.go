package tracing

import (
	"context"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys of connector spans.
const (
	AttrFunction  = attribute.Key("restconnector.function")
	AttrOperation = attribute.Key("restconnector.operation")
	AttrModel     = attribute.Key("restconnector.model")
	AttrRequestID = attribute.Key("restconnector.request_id")
	AttrAttempt   = attribute.Key("restconnector.attempt")

	AttrHTTPMethod = attribute.Key("http.request.method")
	AttrHTTPStatus = attribute.Key("http.response.status_code")
	AttrHTTPRoute  = attribute.Key("http.route")
	AttrServerHost = attribute.Key("server.address")
	AttrURLPath    = attribute.Key("url.path")
)

// AttemptEvent is the name of the span event added per HTTP attempt.
const AttemptEvent = "http.attempt"

// SetCallAttributes records the function and operation of a call.
func SetCallAttributes(span trace.Span, function, operation string) {
	attrs := []attribute.KeyValue{AttrFunction.String(function)}
	if operation != "" {
		attrs = append(attrs, AttrOperation.String(operation))
	}
	span.SetAttributes(attrs...)
}

// SetRequestID records the request id of the remoting call.
func SetRequestID(span trace.Span, requestID string) {
	if requestID != "" {
		span.SetAttributes(AttrRequestID.String(requestID))
	}
}

// SetStatus marks the span as failed and records err, or as OK when err is
// nil.
func SetStatus(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// RecordAttempt adds one HTTP attempt to the span in ctx. Only host and
// path of target are recorded; the query may carry credentials. A status
// of 0 means no response was received.
func RecordAttempt(ctx context.Context, attempt int, method, target string, status int) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{
		AttrAttempt.Int(attempt),
		AttrHTTPMethod.String(method),
	}
	if u, err := url.Parse(target); err == nil {
		attrs = append(attrs, AttrServerHost.String(u.Host), AttrURLPath.String(u.Path))
	}
	if status > 0 {
		attrs = append(attrs, AttrHTTPStatus.Int(status))
	}
	span.AddEvent(AttemptEvent, trace.WithAttributes(attrs...))
}
