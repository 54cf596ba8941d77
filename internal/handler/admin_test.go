package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DukeRupert/hookscope/internal/domain"
	"github.com/DukeRupert/hookscope/internal/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunsReader struct {
	runs   []domain.CronJobRun
	err    error
	limits []int
}

func (f *fakeRunsReader) GetRetentionJobRuns(ctx context.Context, limit int) ([]domain.CronJobRun, error) {
	f.limits = append(f.limits, limit)
	return f.runs, f.err
}

// fakeQuotaService implements service.QuotaService; only GetUsage is exercised.
type fakeQuotaService struct {
	usage  *domain.QuotaUsage
	err    error
	userID uuid.UUID
}

func (f *fakeQuotaService) ResolvePlan(ctx context.Context, userID uuid.UUID) (domain.Plan, error) {
	return domain.PlanFree, nil
}

func (f *fakeQuotaService) GetUsage(ctx context.Context, userID uuid.UUID) (*domain.QuotaUsage, error) {
	f.userID = userID
	return f.usage, f.err
}

func (f *fakeQuotaService) CheckEndpointQuota(ctx context.Context, userID uuid.UUID) error { return nil }
func (f *fakeQuotaService) CheckRequestQuota(ctx context.Context, userID uuid.UUID) error  { return nil }
func (f *fakeQuotaService) CheckAnalysisQuota(ctx context.Context, userID uuid.UUID) error { return nil }

func passThrough(next http.Handler) http.Handler { return next }

func newTestMux(runs RetentionRunsReader, quota *fakeQuotaService) *http.ServeMux {
	mux := http.NewServeMux()
	NewAdminHandler(runs, quota, discardLogger()).RegisterRoutes(mux, passThrough)
	return mux
}

func serve(mux http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
	return rec
}

func TestRetentionRuns_DefaultLimit(t *testing.T) {
	start := time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	reader := &fakeRunsReader{runs: []domain.CronJobRun{
		{RunID: 12, JobID: 1, JobName: "request_retention", Status: domain.CronRunSucceeded, StartTime: start, EndTime: &end, RowsDeleted: 40},
		{RunID: 11, JobID: 1, JobName: "request_retention", Status: domain.CronRunFailed, StartTime: start.Add(-24 * time.Hour)},
	}}

	rec := serve(newTestMux(reader, &fakeQuotaService{}), "/admin/retention/runs")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{5}, reader.limits)

	var body struct {
		Status        string              `json:"status"`
		LastSuccessAt *time.Time          `json:"last_success_at"`
		Runs          []domain.CronJobRun `json:"runs"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, domain.RetentionHealthy, body.Status)
	require.NotNil(t, body.LastSuccessAt)
	assert.True(t, end.Equal(*body.LastSuccessAt))
	require.Len(t, body.Runs, 2)
	assert.Equal(t, int64(12), body.Runs[0].RunID)
	assert.Equal(t, int64(11), body.Runs[1].RunID)
}

func TestRetentionRuns_LimitForwardedAsGiven(t *testing.T) {
	for _, tt := range []struct {
		query string
		want  int
	}{
		{"?limit=20", 20},
		{"?limit=0", 0},
		{"?limit=-3", -3},
	} {
		t.Run(tt.query, func(t *testing.T) {
			reader := &fakeRunsReader{runs: []domain.CronJobRun{}}
			rec := serve(newTestMux(reader, &fakeQuotaService{}), "/admin/retention/runs"+tt.query)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, []int{tt.want}, reader.limits)
		})
	}
}

func TestRetentionRuns_EmptyHistory(t *testing.T) {
	reader := &fakeRunsReader{runs: []domain.CronJobRun{}}

	rec := serve(newTestMux(reader, &fakeQuotaService{}), "/admin/retention/runs")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"unknown","last_success_at":null,"runs":[]}`, rec.Body.String())
}

func TestRetentionRuns_BadLimit(t *testing.T) {
	reader := &fakeRunsReader{}

	rec := serve(newTestMux(reader, &fakeQuotaService{}), "/admin/retention/runs?limit=ten")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, reader.limits)
}

func TestRetentionRuns_QueryFailure(t *testing.T) {
	reader := &fakeRunsReader{err: domain.NewCronQueryError(errors.New("connection refused"))}
	before := testutil.ToFloat64(metrics.RetentionQueryFailures)

	rec := serve(newTestMux(reader, &fakeQuotaService{}), "/admin/retention/runs")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to query retention job run history")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RetentionQueryFailures))
}

func TestUserQuota(t *testing.T) {
	userID := uuid.New()
	quota := &fakeQuotaService{usage: &domain.QuotaUsage{
		Plan:           domain.PlanFree,
		EndpointsUsed:  2,
		EndpointsLimit: 3,
		RequestsUsed:   120,
		RequestsLimit:  500,
		AnalysesUsed:   5,
		AnalysesLimit:  5,

		EndpointsRemaining: 1,
		RequestsRemaining:  380,
		AnalysesRemaining:  0,
	}}

	rec := serve(newTestMux(&fakeRunsReader{}, quota), "/admin/users/"+userID.String()+"/quota")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, quota.userID)
	assert.JSONEq(t, `{
		"plan": "free",
		"endpoints_used": 2, "endpoints_limit": 3,
		"requests_used": 120, "requests_limit": 500,
		"analyses_used": 5, "analyses_limit": 5,
		"endpoints_remaining": 1, "requests_remaining": 380, "analyses_remaining": 0
	}`, rec.Body.String())
}

func TestUserQuota_InvalidID(t *testing.T) {
	rec := serve(newTestMux(&fakeRunsReader{}, &fakeQuotaService{}), "/admin/users/not-a-uuid/quota")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserQuota_ServiceError(t *testing.T) {
	quota := &fakeQuotaService{err: domain.Internal(errors.New("timeout"), "quota.get_usage", "count usage")}

	rec := serve(newTestMux(&fakeRunsReader{}, quota), "/admin/users/"+uuid.NewString()+"/quota")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "timeout")
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(ctx context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	mux := http.NewServeMux()
	NewHealthHandler(fakePinger{}, discardLogger()).RegisterRoutes(mux)
	rec := serve(mux, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	mux = http.NewServeMux()
	NewHealthHandler(fakePinger{err: errors.New("down")}, discardLogger()).RegisterRoutes(mux)
	rec = serve(mux, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
