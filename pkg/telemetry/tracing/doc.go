// Package tracing provides OpenTelemetry distributed tracing for the
// connector.
//
// Function calls run inside a span named after the function. Outgoing
// requests carry the W3C Trace Context headers of that span, and every
// HTTP attempt, retries included, is added to it as an event:
//
//	traceparent: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//
// The remoting server extracts incoming trace context, so a caller's trace
// continues through the connector to the upstream API.
//
// # Configuration
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    sampler: ratio        # always, never or ratio
//	    sample_ratio: 0.1
//	    exporter: otlp
//	    endpoint: localhost:4317
//	    insecure: true
//
// Spans are exported over OTLP gRPC. A disabled or nil Tracer hands out
// no-op spans.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "geocode")
//	defer span.End()
package tracing
