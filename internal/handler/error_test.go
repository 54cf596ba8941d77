package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DukeRupert/hookscope/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) JSONError {
	t.Helper()
	var body JSONError
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.EUNAUTHORIZED, http.StatusUnauthorized},
		{domain.EQUOTA, http.StatusPaymentRequired},
		{domain.EFORBIDDEN, http.StatusForbidden},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.ERATELIMIT, http.StatusTooManyRequests},
		{domain.EUNAVAILABLE, http.StatusServiceUnavailable},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{"something_else", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCodeToHTTPStatus(tt.code))
		})
	}
}

func TestErrorResponse_QuotaExceeded(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/endpoints", nil)

	ErrorResponse(rec, req, discardLogger(), domain.QuotaExceeded("quota.check_endpoint", domain.ResourceEndpoint, 3, 3))

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decodeError(t, rec)
	assert.Equal(t, domain.EQUOTA, body.Error.Code)
	assert.Contains(t, body.Error.Message, "3 of 3 used")
}

func TestErrorResponse_HidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/admin/users/x/quota", nil)

	err := domain.Internal(errors.New("pq: password authentication failed for user \"hookscope\""), "quota.get_usage", "count usage")
	ErrorResponse(rec, req, discardLogger(), err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password authentication")
	assert.NotContains(t, rec.Body.String(), "quota.get_usage")
}

func TestErrorResponse_CronQueryError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/admin/retention/runs", nil)

	ErrorResponse(rec, req, discardLogger(), domain.NewCronQueryError(errors.New("permission denied for function get_retention_job_runs")))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, domain.EUNAVAILABLE, body.Error.Code)
	assert.Equal(t, "Failed to query retention job run history", body.Error.Message)
	assert.NotContains(t, rec.Body.String(), "permission denied")
}

func TestNotFoundResponse(t *testing.T) {
	rec := httptest.NewRecorder()

	NotFoundResponse(rec, httptest.NewRequest("GET", "/nope", nil), discardLogger())

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, domain.ENOTFOUND, decodeError(t, rec).Error.Code)
}
