package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/restconnector/pkg/config"
)

// Collector owns every Prometheus metric of the connector. It satisfies
// transport.Recorder, so it can be handed directly to the HTTP client.
//
// Metrics are registered on a private registry so that multiple collectors
// (one per test, for instance) never collide on the global one.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Outgoing HTTP requests
	requestMetrics *RequestMetrics

	// Template builds
	templateMetrics *TemplateMetrics

	// Remoting server calls
	serverMetrics *ServerMetrics

	// Bounds the function label of server metrics
	cardinalityLimiter *CardinalityLimiter
}

// DefaultMaxCardinality bounds the distinct label sets tracked per metric.
const DefaultMaxCardinality = 1000

// NewCollector creates a collector with the specified configuration. If
// registry is nil a new private registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{Enabled: true, Namespace: "restconnector"}
//	collector := metrics.NewCollector(cfg, nil)
//	client := transport.NewClient(tcfg, transport.WithRecorder(collector))
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = append([]float64(nil), config.DefaultRequestDurationBuckets...)
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(DefaultMaxCardinality),
	}

	c.requestMetrics = NewRequestMetrics(cfg, registry)
	c.templateMetrics = NewTemplateMetrics(cfg, registry)
	c.serverMetrics = NewServerMetrics(cfg, registry)

	return c
}

// RecordRequest records a completed outgoing HTTP request. A status of 0
// means no response was received.
func (c *Collector) RecordRequest(client, method string, status int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.requestMetrics.RecordRequest(client, method, status, duration)
}

// RecordRetry records a retried outgoing request.
func (c *Collector) RecordRetry(client string) {
	if !c.config.Enabled {
		return
	}

	c.requestMetrics.RecordRetry(client)
}

// RecordBuild records a template build.
//
// Parameters:
//   - operation: operation label (see config.OperationConfig.Label)
//   - err: the build error, nil on success
//   - duration: build duration
func (c *Collector) RecordBuild(operation string, err error, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.templateMetrics.RecordBuild(operation, buildOutcome(err), duration)
}

// RecordCall records a function call served by the remoting server.
// Functions beyond the cardinality limit are aggregated into "other".
func (c *Collector) RecordCall(function string, status int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	if !c.cardinalityLimiter.Allow(function) {
		function = "other"
	}
	c.serverMetrics.RecordCall(function, status, duration)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Enabled reports whether metrics are collected.
func (c *Collector) Enabled() bool {
	return c.config.Enabled
}

// Path returns the HTTP path the metrics are served at.
func (c *Collector) Path() string {
	return c.config.Path
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if we haven't reached the cardinality limit yet.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
