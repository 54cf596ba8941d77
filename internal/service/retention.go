package service

import (
	"context"
	"encoding/json"

	"github.com/DukeRupert/hookscope/internal/domain"
	"github.com/DukeRupert/hookscope/internal/rpc"
)

// RetentionRunsRPC is the remote procedure that lists retention job runs,
// most recent first.
const RetentionRunsRPC = "get_retention_job_runs"

// DefaultRetentionRunLimit is the number of runs fetched when the caller has
// no preference.
const DefaultRetentionRunLimit = 5

// RetentionAuditor reads the execution history of the retention job.
// It holds no state between calls and is safe for concurrent use.
type RetentionAuditor struct {
	client rpc.Client
}

// NewRetentionAuditor creates an auditor that queries through the given admin client.
func NewRetentionAuditor(client rpc.Client) *RetentionAuditor {
	return &RetentionAuditor{client: client}
}

// RecentRetentionJobRuns returns the DefaultRetentionRunLimit most recent runs.
func (a *RetentionAuditor) RecentRetentionJobRuns(ctx context.Context) ([]domain.CronJobRun, error) {
	return a.GetRetentionJobRuns(ctx, DefaultRetentionRunLimit)
}

// GetRetentionJobRuns returns up to limit of the most recent retention job runs.
//
// The limit is forwarded unchanged; the backend decides what to do with zero
// or negative values. Any remote failure is returned as a *domain.CronQueryError
// wrapping the original error. A successful call with no payload yields an
// empty slice.
func (a *RetentionAuditor) GetRetentionJobRuns(ctx context.Context, limit int) ([]domain.CronJobRun, error) {
	payload, err := a.client.Call(ctx, RetentionRunsRPC, rpc.Params{
		{Name: "p_limit", Value: limit},
	})
	if err != nil {
		return nil, domain.NewCronQueryError(err)
	}

	runs := []domain.CronJobRun{}
	if isNullPayload(payload) {
		return runs, nil
	}

	if err := json.Unmarshal(payload, &runs); err != nil {
		return nil, domain.NewCronQueryError(err)
	}
	if runs == nil {
		runs = []domain.CronJobRun{}
	}

	return runs, nil
}

func isNullPayload(payload json.RawMessage) bool {
	return len(payload) == 0 || string(payload) == "null"
}
