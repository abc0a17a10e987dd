// Package observability provides OpenTelemetry tracing and metrics for the
// wiring phase.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("plugwire"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanRegister)
//	defer span.End()
//
// Metrics:
//
//	metrics, err := observability.NewWiringMetrics(observability.Meter("plugwire"))
//	metrics.RecordRegistration(ctx, "factory", true)
//
// Without InitTracer/InitMeter the global otel providers are no-ops, so
// instrumented code costs next to nothing in tests.
package observability
