package transport

import (
	"fmt"
	"net/http"
	"time"
)

// StatusError represents a non-2xx HTTP response.
// It carries the response status, headers and raw body.
type StatusError struct {
	// Client is the name of the client that issued the request
	Client string

	// Method and URL identify the request
	Method string
	URL    string

	// StatusCode is the HTTP status code
	StatusCode int

	// Header holds the response headers
	Header http.Header

	// Body is the raw response body
	Body []byte
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if len(e.Body) > 0 {
		return fmt.Sprintf("%s %s: HTTP code %d: %s", e.Method, e.URL, e.StatusCode, truncate(string(e.Body), 256))
	}
	return fmt.Sprintf("%s %s: HTTP code %d", e.Method, e.URL, e.StatusCode)
}

// AuthError represents an authentication failure (HTTP 401 or 403).
type AuthError struct {
	*StatusError
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("client %q authentication failed: %s", e.Client, e.StatusError.Error())
}

// Unwrap returns the underlying status error.
func (e *AuthError) Unwrap() error {
	return e.StatusError
}

// RateLimitError represents a rate limit exceeded error (HTTP 429).
// It includes the retry-after duration if provided by the server.
type RateLimitError struct {
	*StatusError

	// RetryAfter is the duration to wait before retrying (if provided)
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("client %q rate limit exceeded (retry after %s): %s",
			e.Client, e.RetryAfter, e.StatusError.Error())
	}
	return fmt.Sprintf("client %q rate limit exceeded: %s", e.Client, e.StatusError.Error())
}

// Unwrap returns the underlying status error.
func (e *RateLimitError) Unwrap() error {
	return e.StatusError
}

// TimeoutError represents a request that exceeded its deadline.
type TimeoutError struct {
	// Client is the name of the client where the timeout occurred
	Client string

	// Timeout is the effective timeout, zero when the caller's context expired
	Timeout time.Duration

	// Cause is the context or network error
	Cause error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("client %q request timeout after %s", e.Client, e.Timeout)
	}
	return fmt.Sprintf("client %q request cancelled: %v", e.Client, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// ParseError represents a response body that could not be decoded.
type ParseError struct {
	// RawResponse is the raw body that failed to parse
	RawResponse string

	// Cause is the underlying parse error
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("response parse error: %v", e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// RequestError represents a request that could not be encoded or sent.
type RequestError struct {
	// Message describes the failure
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for error chain support.
func (e *RequestError) Unwrap() error {
	return e.Cause
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
