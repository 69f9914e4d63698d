// Package tracing provides OpenTelemetry tracing integration.
//
// Spans are opened around dispatch calls, backend deliveries and drain runs.
// The process installs a tracer provider at startup; without one the global
// no-op provider makes every span free.
//
// Example usage:
//
//	func deliver(ctx context.Context) error {
//	    ctx, span := tracing.StartSpan(ctx, "notify.deliver", attribute.String("medium", "email"))
//	    defer span.End()
//	    err := send(ctx)
//	    tracing.RecordError(span, err)
//	    return err
//	}
package tracing
