package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/restconnector/pkg/config"
	"mercator-hq/restconnector/pkg/template"
	"mercator-hq/restconnector/pkg/transport"
)

var _ transport.Recorder = (*Collector)(nil)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:                true,
		Namespace:              "test",
		RequestDurationBuckets: []float64{0.1, 0.5, 1.0, 5.0},
	}
}

func TestCollector_NewCollector(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector.config != cfg {
		t.Error("Collector config not set correctly")
	}
	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
}

func TestCollector_Defaults(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	collector := NewCollector(cfg, nil)

	if collector.Registry() == nil {
		t.Fatal("expected a private registry")
	}
	if cfg.Namespace != config.DefaultMetricsNamespace {
		t.Errorf("Namespace = %q", cfg.Namespace)
	}
	if len(cfg.RequestDurationBuckets) != len(config.DefaultRequestDurationBuckets) {
		t.Errorf("buckets = %v", cfg.RequestDurationBuckets)
	}
}

func TestCollector_RecordRequest(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordRequest("geo", http.MethodGet, 200, 100*time.Millisecond)
	collector.RecordRequest("geo", http.MethodGet, 200, 200*time.Millisecond)
	collector.RecordRequest("geo", http.MethodPost, 0, time.Second)
	collector.RecordRetry("geo")

	rm := collector.requestMetrics
	if got := testutil.ToFloat64(rm.requestsTotal.WithLabelValues("geo", "GET", "200")); got != 2 {
		t.Errorf("GET 200 count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(rm.requestsTotal.WithLabelValues("geo", "POST", "error")); got != 1 {
		t.Errorf("POST error count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(rm.retriesTotal.WithLabelValues("geo")); got != 1 {
		t.Errorf("retries = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(rm.requestDuration); got != 2 {
		t.Errorf("duration series = %d, want 2", got)
	}
}

func TestCollector_RecordBuild(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	missing := &template.MissingRequiredVariableError{Name: "id"}
	tests := []struct {
		err     error
		outcome string
	}{
		{nil, OutcomeSuccess},
		{missing, OutcomeMissingRequired},
		{fmt.Errorf("wrapped: %w", missing), OutcomeMissingRequired},
		{&template.InvalidVariableExpressionError{Raw: "{a b}"}, OutcomeInvalid},
		{errors.New("boom"), OutcomeError},
	}

	for _, tt := range tests {
		collector.RecordBuild("geocode", tt.err, time.Millisecond)
	}

	tm := collector.templateMetrics
	want := map[string]float64{
		OutcomeSuccess:         1,
		OutcomeMissingRequired: 2,
		OutcomeInvalid:         1,
		OutcomeError:           1,
	}
	for outcome, n := range want {
		if got := testutil.ToFloat64(tm.buildsTotal.WithLabelValues("geocode", outcome)); got != n {
			t.Errorf("builds{outcome=%s} = %v, want %v", outcome, got, n)
		}
	}
}

func TestCollector_RecordCall(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.cardinalityLimiter = NewCardinalityLimiter(2)

	collector.RecordCall("getCoordinates", 200, 10*time.Millisecond)
	collector.RecordCall("getAddress", 400, 10*time.Millisecond)
	collector.RecordCall("unknown", 404, 10*time.Millisecond)

	sm := collector.serverMetrics
	if got := testutil.ToFloat64(sm.callsTotal.WithLabelValues("getCoordinates", "200")); got != 1 {
		t.Errorf("getCoordinates = %v", got)
	}
	if got := testutil.ToFloat64(sm.callsTotal.WithLabelValues("other", "404")); got != 1 {
		t.Errorf("expected the third function aggregated into other, got %v", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, nil)

	collector.RecordRequest("geo", "GET", 200, time.Second)
	collector.RecordRetry("geo")
	collector.RecordBuild("op", nil, time.Millisecond)
	collector.RecordCall("fn", 200, time.Millisecond)

	if got := testutil.CollectAndCount(collector.requestMetrics.requestsTotal); got != 0 {
		t.Errorf("expected no samples when disabled, got %d", got)
	}
	if collector.Enabled() {
		t.Error("Enabled() = true")
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.RecordRequest("geo", "GET", 200, 50*time.Millisecond)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `test_http_requests_total{client="geo",method="GET",status="200"} 1`) {
		t.Errorf("metrics output missing request counter:\n%s", body)
	}
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(2)

	if !cl.Allow("a") || !cl.Allow("b") {
		t.Fatal("expected first two label sets to be allowed")
	}
	if !cl.Allow("a") {
		t.Error("expected an existing label set to be allowed")
	}
	if cl.Allow("c") {
		t.Error("expected the limit to reject a new label set")
	}
	if cl.Count() != 2 {
		t.Errorf("Count() = %d, want 2", cl.Count())
	}
}
