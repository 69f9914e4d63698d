// Package observability provides the logging, metrics and tracing
// infrastructure shared by the dispatcher, the queue drain and the worker.
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - metrics: Prometheus metrics registry and recorders
//   - tracing: OpenTelemetry tracer access
//
// Example usage:
//
//	import (
//	    "notice-dispatch/internal/observability/logging"
//	    "notice-dispatch/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("worker started")
//
//	    metrics.RecordDrainRun("done")
//	}
package observability
