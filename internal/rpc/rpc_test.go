package rpc

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCallQuery(t *testing.T) {
	query, args, err := BuildCallQuery("public", "get_retention_job_runs", Params{{Name: "p_limit", Value: 10}})

	require.NoError(t, err)
	assert.Equal(t, `SELECT json_agg(t) FROM "public"."get_retention_job_runs"("p_limit" => $1) AS t`, query)
	assert.Equal(t, []any{10}, args)
}

func TestBuildCallQuery_MultipleParams(t *testing.T) {
	query, args, err := BuildCallQuery("ops", "runs", Params{
		{Name: "p_limit", Value: 5},
		{Name: "p_job", Value: "request_retention"},
	})

	require.NoError(t, err)
	assert.Equal(t, `SELECT json_agg(t) FROM "ops"."runs"("p_limit" => $1, "p_job" => $2) AS t`, query)
	assert.Equal(t, []any{5, "request_retention"}, args)
}

func TestBuildCallQuery_QuotesHostileNames(t *testing.T) {
	query, _, err := BuildCallQuery("", `runs"; DROP TABLE x; --`, nil)

	require.NoError(t, err)
	assert.Equal(t, `SELECT json_agg(t) FROM "runs""; DROP TABLE x; --"() AS t`, query)
}

func TestBuildCallQuery_InvalidNames(t *testing.T) {
	_, _, err := BuildCallQuery("public", " ", nil)
	assert.ErrorIs(t, err, ErrInvalidName)

	_, _, err = BuildCallQuery("public", "runs", Params{{Name: "", Value: 1}})
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestNewPostgresClient_DefaultSchema(t *testing.T) {
	c := NewPostgresClient(nil, "")
	assert.Equal(t, "public", c.schema)
}

// fakeRow scans a fixed payload into the first destination.
type fakeRow struct {
	payload []byte
	err     error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*[]byte) = r.payload
	return nil
}

func newFakeClient(row fakeRow, gotQuery *string, gotArgs *[]any) *PostgresClient {
	return &PostgresClient{
		schema: "public",
		queryRow: func(ctx context.Context, query string, args ...any) rowScanner {
			*gotQuery = query
			*gotArgs = args
			return row
		},
	}
}

func TestPostgresClient_Call(t *testing.T) {
	var query string
	var args []any
	c := newFakeClient(fakeRow{payload: []byte(`[{"runid":1}]`)}, &query, &args)

	payload, err := c.Call(context.Background(), "get_retention_job_runs", Params{{Name: "p_limit", Value: 5}})

	require.NoError(t, err)
	assert.JSONEq(t, `[{"runid":1}]`, string(payload))
	assert.Equal(t, `SELECT json_agg(t) FROM "public"."get_retention_job_runs"("p_limit" => $1) AS t`, query)
	assert.Equal(t, []any{5}, args)
}

func TestPostgresClient_Call_NullPayload(t *testing.T) {
	var query string
	var args []any
	c := newFakeClient(fakeRow{}, &query, &args)

	payload, err := c.Call(context.Background(), "get_retention_job_runs", Params{{Name: "p_limit", Value: 5}})

	require.NoError(t, err)
	assert.Nil(t, payload)
}

func TestPostgresClient_Call_WrapsScanError(t *testing.T) {
	var query string
	var args []any
	cause := errors.New("permission denied for function get_retention_job_runs")
	c := newFakeClient(fakeRow{err: cause}, &query, &args)

	payload, err := c.Call(context.Background(), "get_retention_job_runs", nil)

	assert.Nil(t, payload)
	assert.ErrorIs(t, err, cause)
	assert.ErrorContains(t, err, "rpc get_retention_job_runs")
}

func TestPostgresClient_Call_InvalidNameSkipsQuery(t *testing.T) {
	called := false
	c := &PostgresClient{queryRow: func(ctx context.Context, query string, args ...any) rowScanner {
		called = true
		return fakeRow{err: sql.ErrNoRows}
	}}

	_, err := c.Call(context.Background(), "", nil)

	assert.ErrorIs(t, err, ErrInvalidName)
	assert.False(t, called)
}
