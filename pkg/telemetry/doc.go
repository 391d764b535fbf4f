// Package telemetry groups the observability packages of the connector.
//
// # Components
//
//   - logging: structured slog logging with request, operation and function
//     fields taken from the context, and credential redaction
//   - metrics: Prometheus metrics for outgoing requests, template builds and
//     remoting calls
//   - tracing: OpenTelemetry spans for function calls and HTTP attempts, with
//     W3C Trace Context propagation to upstream APIs
//   - health: liveness, readiness and version endpoints of the server
//
// # Wiring
//
//	logger, _ := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	tracer, _ := tracing.New(&cfg.Telemetry.Tracing, version)
//	defer tracer.Shutdown(context.Background())
//
//	conn, _ := connector.New(cfg,
//	    connector.WithLogger(logger.Slog()),
//	    connector.WithRecorder(collector),
//	    connector.WithTracer(tracer),
//	)
//
// Every component is optional. A connector without a recorder or tracer
// records nothing.
package telemetry
