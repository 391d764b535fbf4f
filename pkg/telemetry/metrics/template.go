package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/restconnector/pkg/config"
	"mercator-hq/restconnector/pkg/template"
)

// Build outcomes.
const (
	OutcomeSuccess         = "success"
	OutcomeMissingRequired = "missing_required"
	OutcomeInvalid         = "invalid"
	OutcomeError           = "error"
)

// TemplateMetrics tracks request template builds.
//
// Metrics:
//   - restconnector_template_builds_total: builds by operation and outcome
//   - restconnector_template_build_duration_seconds: build duration
type TemplateMetrics struct {
	buildsTotal   *prometheus.CounterVec
	buildDuration *prometheus.HistogramVec
}

// NewTemplateMetrics creates and registers template metrics with the provided registry.
func NewTemplateMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *TemplateMetrics {
	tm := &TemplateMetrics{
		buildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "template_builds_total",
				Help:      "Total number of request template builds",
			},
			[]string{"operation", "outcome"},
		),

		buildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "template_build_duration_seconds",
				Help:      "Duration of request template builds in seconds",
				// Builds are in-memory tree walks
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8), // 10µs to 160ms
			},
			[]string{"operation"},
		),
	}

	registry.MustRegister(
		tm.buildsTotal,
		tm.buildDuration,
	)

	return tm
}

// RecordBuild records one build.
func (tm *TemplateMetrics) RecordBuild(operation, outcome string, duration time.Duration) {
	tm.buildsTotal.WithLabelValues(operation, outcome).Inc()
	tm.buildDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func buildOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, template.ErrMissingRequiredVariable):
		return OutcomeMissingRequired
	case errors.Is(err, template.ErrInvalidVariableExpression):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}
