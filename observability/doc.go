// Package observability wires OpenTelemetry tracing and metrics for the
// session client.
//
// Setup:
//
//	shutdown, err := observability.Init(ctx, observability.Config{
//		ServiceName: "kelmahctl",
//		Endpoint:    "localhost:4318",
//		Insecure:    true,
//	})
//	defer shutdown(ctx)
//
// An empty Endpoint leaves the global no-op providers in place, so spans and
// instruments cost nothing unless telemetry is configured.
//
// Session instruments:
//
//	m, err := observability.NewSessionMetrics(observability.Meter(observability.InstrumentationName))
//	m.RecordRequest(ctx, "GET", "success", elapsed)
//	m.RecordRefresh(ctx, observability.RefreshSucceeded)
package observability
