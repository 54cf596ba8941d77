package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// Cron run status values.
const (
	CronRunStarting  = "starting"
	CronRunRunning   = "running"
	CronRunSucceeded = "succeeded"
	CronRunFailed    = "failed"
)

// CronJobRun is one historical execution of a scheduled job.
// The JSON shape matches the rows returned by get_retention_job_runs.
type CronJobRun struct {
	RunID         int64           `json:"runid"`
	JobID         int64           `json:"jobid"`
	JobName       string          `json:"job_name"`
	Status        string          `json:"status"`
	ReturnMessage string          `json:"return_message"`
	StartTime     time.Time       `json:"start_time"`
	EndTime       *time.Time      `json:"end_time"`
	RowsDeleted   int64           `json:"rows_deleted"`
	RowsArchived  int64           `json:"rows_archived"`
	DurationMS    int64           `json:"duration_ms"`
	Details       json.RawMessage `json:"details,omitempty"`
}

// Succeeded returns true if the run finished without error.
func (r *CronJobRun) Succeeded() bool {
	return r.Status == CronRunSucceeded
}

// Failed returns true if the run finished with an error.
func (r *CronJobRun) Failed() bool {
	return r.Status == CronRunFailed
}

// CronQueryKindRetention tags a failed retention history query.
const CronQueryKindRetention = "retention_query_failed"

// CronQueryMessage is the fixed summary carried by every CronQueryError.
const CronQueryMessage = "Failed to query retention job run history"

// CronQueryError reports that the job run history could not be fetched from
// the backend. Cause holds whatever the remote layer returned.
type CronQueryError struct {
	Kind  string
	Cause error
}

// NewCronQueryError wraps cause as a retention query failure.
func NewCronQueryError(cause error) *CronQueryError {
	return &CronQueryError{
		Kind:  CronQueryKindRetention,
		Cause: cause,
	}
}

func (e *CronQueryError) Error() string {
	return CronQueryMessage
}

func (e *CronQueryError) Unwrap() error {
	return e.Cause
}

// IsCronQueryError reports whether err, or any error it wraps, is a CronQueryError.
func IsCronQueryError(err error) bool {
	var cqe *CronQueryError
	return errors.As(err, &cqe)
}

// Retention health values derived from the most recent run.
const (
	RetentionHealthy = "healthy"
	RetentionFailing = "failing"
	RetentionRunning = "running"
	RetentionUnknown = "unknown"
)

// RetentionHealth summarizes a most-recent-first slice of runs.
type RetentionHealth struct {
	Status        string     `json:"status"`
	LastSuccessAt *time.Time `json:"last_success_at"`
}

// SummarizeRuns derives health from runs ordered most recent first.
// LastSuccessAt is the end time of the newest succeeded run, or its start
// time when no end time was recorded.
func SummarizeRuns(runs []CronJobRun) RetentionHealth {
	if len(runs) == 0 {
		return RetentionHealth{Status: RetentionUnknown}
	}

	var h RetentionHealth
	switch runs[0].Status {
	case CronRunSucceeded:
		h.Status = RetentionHealthy
	case CronRunFailed:
		h.Status = RetentionFailing
	case CronRunStarting, CronRunRunning:
		h.Status = RetentionRunning
	default:
		h.Status = RetentionUnknown
	}

	for i := range runs {
		if !runs[i].Succeeded() {
			continue
		}
		at := runs[i].StartTime
		if runs[i].EndTime != nil {
			at = *runs[i].EndTime
		}
		h.LastSuccessAt = &at
		break
	}
	return h
}
