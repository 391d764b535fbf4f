package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/restconnector/pkg/config"
)

// RequestMetrics tracks outgoing HTTP requests to the remote API.
//
// Metrics:
//   - restconnector_http_requests_total: requests by client, method and status
//   - restconnector_http_request_duration_seconds: request duration histogram
//   - restconnector_http_retries_total: retried requests by client
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	retriesTotal    *prometheus.CounterVec
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests sent to the remote API",
			},
			[]string{"client", "method", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests sent to the remote API in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"client", "method"},
		),

		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "http_retries_total",
				Help:      "Total number of retried HTTP requests",
			},
			[]string{"client"},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.retriesTotal,
	)

	return rm
}

// RecordRequest records a completed request. Status 0 is labelled "error".
func (rm *RequestMetrics) RecordRequest(client, method string, status int, duration time.Duration) {
	rm.requestsTotal.WithLabelValues(client, method, statusLabel(status)).Inc()
	rm.requestDuration.WithLabelValues(client, method).Observe(duration.Seconds())
}

// RecordRetry records one retry.
func (rm *RequestMetrics) RecordRetry(client string) {
	rm.retriesTotal.WithLabelValues(client).Inc()
}

func statusLabel(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status)
}
