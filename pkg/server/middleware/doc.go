// Package middleware provides the HTTP middleware of the remoting server.
//
// Middleware functions are chained with recovery outermost:
//
//	handler = Recovery(Tracing(Logging(RequestID(BodyLimit(handler)))))
//
// RequestIDMiddleware stores the request id with logging.WithRequestID, so
// every log line written while serving the request, including those of
// outgoing REST calls, carries the same request_id. TracingMiddleware runs outside logging so
those lines also carry the trace_id of the server span.
package middleware
