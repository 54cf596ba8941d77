// Package rpc provides the privileged backend handle used to invoke named
// database procedures.
//
// A Client is built once by the application entry point from its admin
// connection and handed to the services that need it. Services never open
// connections or manage credentials themselves.
package rpc

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ErrInvalidName is returned when a procedure or parameter name is empty.
var ErrInvalidName = errors.New("rpc: invalid name")

// Param is a single named argument to a remote procedure.
type Param struct {
	Name  string
	Value any
}

// Params is an ordered list of named arguments.
type Params []Param

// Client invokes a named remote procedure and returns its JSON payload.
// A nil payload with a nil error means the procedure succeeded and returned nothing.
type Client interface {
	Call(ctx context.Context, fn string, params Params) (json.RawMessage, error)
}

// Querier is the subset of *sql.DB used by PostgresClient.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresClient calls set-returning Postgres functions and aggregates the
// result rows into a single JSON array.
type PostgresClient struct {
	queryRow func(ctx context.Context, query string, args ...any) rowScanner
	schema   string
}

// NewPostgresClient creates a client for functions in the given schema.
// An empty schema means "public".
func NewPostgresClient(db Querier, schema string) *PostgresClient {
	if schema == "" {
		schema = "public"
	}
	return &PostgresClient{
		queryRow: func(ctx context.Context, query string, args ...any) rowScanner {
			return db.QueryRowContext(ctx, query, args...)
		},
		schema: schema,
	}
}

// Call runs fn with params using named-argument notation.
// Zero result rows aggregate to SQL NULL, which is returned as a nil payload.
func (c *PostgresClient) Call(ctx context.Context, fn string, params Params) (json.RawMessage, error) {
	query, args, err := BuildCallQuery(c.schema, fn, params)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if err := c.queryRow(ctx, query, args...).Scan(&payload); err != nil {
		return nil, fmt.Errorf("rpc %s: %w", fn, err)
	}
	if payload == nil {
		return nil, nil
	}

	return json.RawMessage(payload), nil
}

// BuildCallQuery renders the SQL used to invoke fn, along with its positional
// arguments. Identifiers are quoted so names are never interpolated raw.
func BuildCallQuery(schema, fn string, params Params) (string, []any, error) {
	if strings.TrimSpace(fn) == "" {
		return "", nil, ErrInvalidName
	}

	named := make([]string, 0, len(params))
	args := make([]any, 0, len(params))
	for i, p := range params {
		if strings.TrimSpace(p.Name) == "" {
			return "", nil, fmt.Errorf("%w: parameter %d of %s", ErrInvalidName, i+1, fn)
		}
		named = append(named, fmt.Sprintf("%s => $%d", pq.QuoteIdentifier(p.Name), i+1))
		args = append(args, p.Value)
	}

	target := pq.QuoteIdentifier(fn)
	if schema != "" {
		target = pq.QuoteIdentifier(schema) + "." + target
	}

	query := fmt.Sprintf("SELECT json_agg(t) FROM %s(%s) AS t", target, strings.Join(named, ", "))
	return query, args, nil
}
