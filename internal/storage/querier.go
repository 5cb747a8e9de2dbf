// Package storage provides Postgres-backed implementations of the narrow
// Store interfaces internal/statemachine, internal/routeassembler,
// internal/orchestrator, internal/predictor, internal/planning, and
// internal/bulkimport each define for themselves. One set of free functions does the actual SQL work against
// a querier; each package gets a thin wrapper type exposing only the
// methods its own Store interface names.
package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is the common surface of dispatch/pkg/database.DB and pgx.Tx,
// letting the same SQL helpers run against either a pool or a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
