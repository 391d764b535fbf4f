// Package server exposes connector functions over HTTP.
//
// Each function is served at its verb and path under the configured base
// path; ":name" path segments become path wildcards:
//
//	GET  /api/findUser/{id}
//	POST /api/invoke
//
// Arguments are read from the source their metadata names (path, query,
// header or the JSON body), converted to their declared type and passed to
// Connector.Call in order. The response body of the REST call is written
// back as JSON.
//
// # Errors
//
// Failures are answered with an ErrorBody:
//
//	{"error": {"message": "...", "status": 404, "details": {...}}}
//
// A missing required argument or an undecodable body is a 400. An error
// status from the REST API is passed through with its decoded body as
// details. Timeouts are a 504; any other failure is a 502. Messages are
// redacted, resolved secrets included, before they are sent.
//
// # Endpoints
//
// Besides the functions the server answers /health, /ready and /version
// (package health), the Prometheus metrics path when a collector is set,
// and {base}/openapi.json with the document of the current functions.
//
// # Tracing
//
// WithTracer continues the caller's W3C trace context in a server span and
// returns its id in X-Trace-ID; function calls and upstream requests
// become child spans.
//
// # Reload
//
// Reload swaps the served connector atomically, so a configuration watcher
// can apply new templates without restarting the listener.
package server
