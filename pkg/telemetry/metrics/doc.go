// Package metrics provides Prometheus metrics for the REST connector.
//
// # Metrics
//
// Outgoing HTTP requests (recorded by transport.Client through the
// transport.Recorder interface):
//   - restconnector_http_requests_total{client,method,status}
//   - restconnector_http_request_duration_seconds{client,method}
//   - restconnector_http_retries_total{client}
//
// Template builds:
//   - restconnector_template_builds_total{operation,outcome}
//   - restconnector_template_build_duration_seconds{operation}
//
// Remoting server calls:
//   - restconnector_server_calls_total{function,status}
//   - restconnector_server_call_duration_seconds{function}
//
// A status label of "error" means no HTTP response was produced.
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
package metrics
