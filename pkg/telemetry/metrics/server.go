package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/restconnector/pkg/config"
)

// ServerMetrics tracks function calls served by the remoting server.
//
// Metrics:
//   - restconnector_server_calls_total: calls by function and status
//   - restconnector_server_call_duration_seconds: call duration
type ServerMetrics struct {
	callsTotal   *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
}

// NewServerMetrics creates and registers server metrics with the provided registry.
func NewServerMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ServerMetrics {
	sm := &ServerMetrics{
		callsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "server_calls_total",
				Help:      "Total number of function calls served",
			},
			[]string{"function", "status"},
		),

		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "server_call_duration_seconds",
				Help:      "Duration of served function calls in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"function"},
		),
	}

	registry.MustRegister(
		sm.callsTotal,
		sm.callDuration,
	)

	return sm
}

// RecordCall records one served call.
func (sm *ServerMetrics) RecordCall(function string, status int, duration time.Duration) {
	sm.callsTotal.WithLabelValues(function, statusLabel(status)).Inc()
	sm.callDuration.WithLabelValues(function).Observe(duration.Seconds())
}
