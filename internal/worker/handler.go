package worker

import "context"

// JobHandler defines the interface that all scheduled jobs must implement.
type JobHandler interface {
	// Type returns the job name. It is stored in cron_jobs.job_name and must
	// be unique per worker.
	Type() string

	// Handle executes one run. The returned Result is recorded on the run
	// row even when err is non-nil, so partial progress is not lost.
	Handle(ctx context.Context) (Result, error)
}

// Result summarizes the work done by one run.
type Result struct {
	RowsDeleted  int64
	RowsArchived int64

	// Details is stored as JSON on the run row.
	Details map[string]any
}
