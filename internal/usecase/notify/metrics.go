package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for delivery monitoring
var (
	// deliveryAttemptsTotal tracks Deliver calls per medium
	deliveryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notice_delivery_attempts_total",
			Help: "Total number of delivery attempts",
		},
		[]string{"medium"},
	)

	// deliveriesTotal tracks delivery results per medium
	deliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notice_deliveries_total",
			Help: "Total number of deliveries by result",
		},
		[]string{"medium", "status"}, // status: success|failure
	)

	// deliveryDuration tracks Deliver duration
	deliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notice_delivery_duration_seconds",
			Help:    "Delivery duration in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"medium"},
	)

	// deliverySkippedTotal tracks recipients a medium did not deliver to
	deliverySkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notice_delivery_skipped_total",
			Help: "Total number of recipients skipped by a medium",
		},
		[]string{"medium", "reason"}, // reason: ineligible|circuit_open
	)

	// rateLimitWaitSeconds tracks time spent waiting for webhook rate limits
	rateLimitWaitSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notice_rate_limit_wait_seconds",
			Help:    "Time spent waiting for rate limits in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"medium"},
	)

	// circuitBreakerOpenTotal tracks breaker transitions to open
	circuitBreakerOpenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notice_circuit_breaker_open_total",
			Help: "Total number of circuit breaker open events",
		},
		[]string{"medium"},
	)

	// backendsConfigured tracks the size of the loaded registry
	backendsConfigured = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notice_backends_configured",
			Help: "Number of configured delivery backends",
		},
	)
)

// RecordDeliveryAttempt records that Deliver is about to be called.
func RecordDeliveryAttempt(medium string) {
	deliveryAttemptsTotal.WithLabelValues(medium).Inc()
}

// RecordSuccess records a successful delivery and its duration.
func RecordSuccess(medium string, duration time.Duration) {
	deliveriesTotal.WithLabelValues(medium, "success").Inc()
	deliveryDuration.WithLabelValues(medium).Observe(duration.Seconds())
}

// RecordFailure records a failed delivery and how long it took to fail.
func RecordFailure(medium string, duration time.Duration) {
	deliveriesTotal.WithLabelValues(medium, "failure").Inc()
	deliveryDuration.WithLabelValues(medium).Observe(duration.Seconds())
}

// RecordSkipped records a recipient the medium did not deliver to.
//
// Parameters:
//   - medium: The medium label
//   - reason: ineligible or circuit_open
func RecordSkipped(medium string, reason string) {
	deliverySkippedTotal.WithLabelValues(medium, reason).Inc()
}

// RecordCircuitBreakerOpen records a breaker opening for the medium.
func RecordCircuitBreakerOpen(medium string) {
	circuitBreakerOpenTotal.WithLabelValues(medium).Inc()
}

// RecordRateLimitWait records time spent waiting on a webhook rate limiter.
func RecordRateLimitWait(medium string, waitDuration time.Duration) {
	rateLimitWaitSeconds.WithLabelValues(medium).Observe(waitDuration.Seconds())
}

// SetBackendsConfigured sets the number of loaded backends.
func SetBackendsConfigured(count int) {
	backendsConfigured.Set(float64(count))
}
