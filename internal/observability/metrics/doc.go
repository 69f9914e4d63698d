// Package metrics provides the Prometheus metrics registry and recording utilities.
//
// This package centralizes the store and queue metrics:
//   - Notice history (notices created per type)
//   - Queue traffic (batches and entries enqueued)
//   - Drain runs (outcome, duration, entries processed)
//
// Delivery metrics per medium live next to the dispatcher in usecase/notify.
// All metrics are registered with the Prometheus default registry and exposed
// via the worker's /metrics endpoint.
//
// Example usage:
//
//	import "notice-dispatch/internal/observability/metrics"
//
//	func enqueue(label string, entries int) {
//	    metrics.RecordBatchQueued(entries)
//	}
package metrics
