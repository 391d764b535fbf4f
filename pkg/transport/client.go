package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"mercator-hq/restconnector/pkg/telemetry/tracing"
)

// ErrTooManyRedirects is returned when a request exceeds its redirect limit.
var ErrTooManyRedirects = errors.New("too many redirects")

// Config configures a Client.
type Config struct {
	// Name identifies the client in logs, metrics and errors
	Name string

	// Timeout is the default per-request timeout (0 disables it)
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt for
	// network errors and 5xx responses
	MaxRetries int

	// RetryBackoff is the base delay; attempt n waits RetryBackoff * 2^(n-1)
	RetryBackoff time.Duration

	// Connection pool settings
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	// Headers are added to every request unless the request sets them
	Headers map[string]string

	// BaseDir resolves relative attachment paths
	BaseDir string
}

// Recorder receives request metrics. It is satisfied by the metrics
// collector.
type Recorder interface {
	RecordRequest(client, method string, status int, duration time.Duration)
	RecordRetry(client string)
}

// Stats is a snapshot of the client's request counters.
type Stats struct {
	TotalRequests         int64
	FailedRequests        int64
	Retries               int64
	ConsecutiveFailures   int
	LastError             error
	LastSuccessfulRequest time.Time
}

// Client executes Requests with connection pooling, retries and timeouts.
// It is safe for concurrent use.
type Client struct {
	config   Config
	client   *http.Client
	recorder Recorder
	logger   *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// Option configures a Client.
type Option func(*Client)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithLogger sets the logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewClient creates a client with a pooled HTTP transport.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Name == "" {
		cfg.Name = "rest"
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 100
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = 10
	}
	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	c := &Client{
		config: cfg,
		client: &http.Client{Transport: transport},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the configured client name.
func (c *Client) Name() string {
	return c.config.Name
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.config
}

// Stats returns a snapshot of the request counters.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Do sends the request. Network errors and 5xx responses are retried with
// exponential backoff; 4xx responses are returned immediately as
// StatusError, AuthError (401, 403) or RateLimitError (429).
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target, err := req.buildURL()
	if err != nil {
		return nil, &RequestError{Message: "failed to build request url", Cause: err}
	}

	body, contentType, err := req.encodeBody(c.config.BaseDir)
	if err != nil {
		return nil, err
	}

	timeout := c.config.Timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	hc := c.client
	if req.MaxRedirects != nil {
		hc = withRedirectLimit(c.client, *req.MaxRedirects)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * c.config.RetryBackoff
			c.logger.DebugContext(ctx, "retrying request",
				"client", c.config.Name,
				"attempt", attempt,
				"max_retries", c.config.MaxRetries,
				"backoff", backoff,
			)
			c.recordRetry()

			select {
			case <-ctx.Done():
				return nil, c.timeoutError(ctx, timeout)
			case <-time.After(backoff):
			}
		}

		httpReq, err := c.newHTTPRequest(ctx, method, target, body, contentType, req)
		if err != nil {
			return nil, err
		}

		c.logger.DebugContext(ctx, "sending request",
			"client", c.config.Name,
			"method", method,
			"url", target,
		)

		start := time.Now()
		httpResp, err := hc.Do(httpReq)
		if err != nil {
			tracing.RecordAttempt(ctx, attempt+1, method, target, 0)
			c.record(method, 0, time.Since(start), err)
			if ctx.Err() != nil {
				return nil, c.timeoutError(ctx, timeout)
			}
			if errors.Is(err, ErrTooManyRedirects) {
				return nil, &RequestError{Message: fmt.Sprintf("%s %s failed", method, target), Cause: err}
			}
			lastErr = &RequestError{Message: fmt.Sprintf("%s %s failed", method, target), Cause: err}
			c.logger.WarnContext(ctx, "request failed, will retry",
				"client", c.config.Name,
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		tracing.RecordAttempt(ctx, attempt+1, method, target, httpResp.StatusCode)

		respBody, err := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		if err != nil {
			c.record(method, httpResp.StatusCode, time.Since(start), err)
			if ctx.Err() != nil {
				return nil, c.timeoutError(ctx, timeout)
			}
			lastErr = &RequestError{Message: "failed to read response body", Cause: err}
			continue
		}

		resp := &Response{
			StatusCode: httpResp.StatusCode,
			Header:     httpResp.Header,
			Body:       respBody,
		}

		if resp.StatusCode < 400 {
			c.record(method, resp.StatusCode, time.Since(start), nil)
			return resp, nil
		}

		statusErr := &StatusError{
			Client:     c.config.Name,
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       resp.Body,
		}
		c.record(method, resp.StatusCode, time.Since(start), statusErr)

		switch {
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			return nil, &AuthError{StatusError: statusErr}
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, &RateLimitError{
				StatusError: statusErr,
				RetryAfter:  parseRetryAfter(resp.Header.Get("Retry-After")),
			}
		case resp.StatusCode < 500:
			return nil, statusErr
		}

		lastErr = statusErr
		c.logger.WarnContext(ctx, "request returned error status, will retry",
			"client", c.config.Name,
			"status", resp.StatusCode,
			"attempt", attempt+1,
		)
	}

	return nil, lastErr
}

func (c *Client) newHTTPRequest(ctx context.Context, method, target string, body []byte, contentType string, req *Request) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, &RequestError{Message: "failed to create request", Cause: err}
	}

	for key, value := range c.config.Headers {
		httpReq.Header.Set(key, value)
	}
	req.applyHeaders(httpReq.Header)
	tracing.Inject(ctx, httpReq.Header)

	if contentType != "" && (httpReq.Header.Get("Content-Type") == "" || len(req.Attachments) > 0) {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.JSON && httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", ContentTypeJSON)
	}
	return httpReq, nil
}

func (c *Client) timeoutError(ctx context.Context, timeout time.Duration) error {
	cause := ctx.Err()
	if !errors.Is(cause, context.DeadlineExceeded) {
		timeout = 0
	}
	return &TimeoutError{Client: c.config.Name, Timeout: timeout, Cause: cause}
}

func (c *Client) record(method string, status int, d time.Duration, err error) {
	c.mu.Lock()
	c.stats.TotalRequests++
	if err != nil {
		c.stats.FailedRequests++
		c.stats.ConsecutiveFailures++
		c.stats.LastError = err
	} else {
		c.stats.ConsecutiveFailures = 0
		c.stats.LastError = nil
		c.stats.LastSuccessfulRequest = time.Now()
	}
	c.mu.Unlock()

	if c.recorder != nil {
		c.recorder.RecordRequest(c.config.Name, method, status, d)
	}
}

func (c *Client) recordRetry() {
	c.mu.Lock()
	c.stats.Retries++
	c.mu.Unlock()

	if c.recorder != nil {
		c.recorder.RecordRetry(c.config.Name)
	}
}

// CloseIdleConnections closes idle pooled connections.
func (c *Client) CloseIdleConnections() {
	c.client.CloseIdleConnections()
}

// withRedirectLimit returns a shallow copy of hc that follows at most max
// redirects. Zero disables redirects and returns the 3xx response.
func withRedirectLimit(hc *http.Client, limit int) *http.Client {
	limited := *hc
	limited.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
		if limit <= 0 {
			return http.ErrUseLastResponse
		}
		if len(via) > limit {
			return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, limit)
		}
		return nil
	}
	return &limited
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}
