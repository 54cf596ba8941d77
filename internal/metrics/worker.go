package metrics

import "time"

// JobCompleted records a successful job run
func JobCompleted(jobType string, duration time.Duration) {
	JobsTotal.WithLabelValues(jobType, "succeeded").Inc()
	JobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// JobFailed records a failed job run
func JobFailed(jobType string, duration time.Duration) {
	JobsTotal.WithLabelValues(jobType, "failed").Inc()
	JobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// JobSkipped records a tick dropped because the job was still running
func JobSkipped(jobType string) {
	JobsSkipped.WithLabelValues(jobType).Inc()
}

// RetentionPruned records rows removed and archived by one retention batch
func RetentionPruned(deleted, archived int64) {
	RetentionRowsDeleted.Add(float64(deleted))
	RetentionRowsArchived.Add(float64(archived))
}

// RetentionQueryFailed records a failed read of the retention run history
func RetentionQueryFailed() {
	RetentionQueryFailures.Inc()
}
