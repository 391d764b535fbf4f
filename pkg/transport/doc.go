// Package transport executes HTTP requests for REST templates.
//
// # Overview
//
// A Client wraps a pooled net/http client and adds the behavior the REST
// layer relies on: per-request timeouts, redirect limits, retries with
// exponential backoff and a typed error taxonomy.
//
// # Requests
//
// A Request carries the branches of a built request template. Query and
// header values may be any JSON value; they are rendered with
// template.Stringify, arrays become repeated values and nulls are dropped.
// The body is encoded according to the Content-Type header:
//
//   - application/x-www-form-urlencoded: objects are url-encoded, strings
//     are sent as is
//   - other non-JSON types: strings are sent as is
//   - otherwise: the body is JSON encoded
//
// Requests with Attachments are sent as multipart/form-data, with object
// body members written as form fields.
//
// # Retries
//
// Network errors and 5xx responses are retried up to Config.MaxRetries
// times. Attempt n waits RetryBackoff * 2^(n-1). Client errors are never
// retried:
//
//   - 401, 403: *AuthError
//   - 429: *RateLimitError with the Retry-After delay
//   - other 4xx: *StatusError
//
// AuthError and RateLimitError unwrap to *StatusError, so
//
//	var se *transport.StatusError
//	if errors.As(err, &se) {
//	    log.Printf("status %d: %s", se.StatusCode, se.Body)
//	}
//
// matches every non-2xx failure.
//
// # Metrics
//
// A Recorder installed with WithRecorder observes every attempt and every
// retry. Stats returns the client's own counters.
package transport
