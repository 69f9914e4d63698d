package metrics

import (
	"time"
)

// RecordNoticeCreated records one notice history row for the given type.
func RecordNoticeCreated(label string) {
	NoticesCreatedTotal.WithLabelValues(label).Inc()
}

// RecordBatchQueued records one queue batch holding the given number of entries.
func RecordBatchQueued(entries int) {
	QueueBatchesTotal.Inc()
	QueueEntriesTotal.Add(float64(entries))
}

// RecordDrainRun records the final state of a drain run.
func RecordDrainRun(state string) {
	DrainRunsTotal.WithLabelValues(state).Inc()
}

// RecordDrainCompleted records the statistics of a completed drain.
// skipped entries are counted in sent but not in sentActual.
func RecordDrainCompleted(batches, sent, sentActual, skipped int, elapsed time.Duration, at time.Time) {
	DrainDuration.Observe(elapsed.Seconds())
	DrainBatchesTotal.Add(float64(batches))

	ineligible := sent - sentActual - skipped
	if ineligible < 0 {
		ineligible = 0
	}
	DrainEntriesTotal.WithLabelValues("delivered").Add(float64(sentActual))
	DrainEntriesTotal.WithLabelValues("ineligible").Add(float64(ineligible))
	DrainEntriesTotal.WithLabelValues("skipped").Add(float64(skipped))
	DrainLastSuccessTimestamp.Set(float64(at.Unix()))
}
