package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"dispatch/internal/domain"
	"dispatch/internal/statemachine"
	"dispatch/pkg/database"
)

// StatemachineStore is the Postgres-backed statemachine.TxStore: reads take
// FOR UPDATE row locks so a transition's read-check-write is serialized
// against concurrent transitions on the same entity, backing up the
// in-memory version check internal/statemachine already performs.
type StatemachineStore struct {
	db database.DB
	q  querier
}

// NewStatemachineStore wraps a connection pool for use by
// internal/statemachine.
func NewStatemachineStore(db database.DB) *StatemachineStore {
	return &StatemachineStore{db: db, q: db}
}

func (s *StatemachineStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return getOrder(ctx, s.q, id)
}

func (s *StatemachineStore) SaveOrder(ctx context.Context, order *domain.Order) error {
	return saveOrder(ctx, s.q, order)
}

func (s *StatemachineStore) GetRoute(ctx context.Context, id string) (*domain.Route, error) {
	return getRoute(ctx, s.q, id)
}

func (s *StatemachineStore) SaveRoute(ctx context.Context, route *domain.Route) error {
	return saveRoute(ctx, s.q, route)
}

func (s *StatemachineStore) OrdersByRoute(ctx context.Context, routeID string) ([]*domain.Order, error) {
	return ordersByRoute(ctx, s.q, routeID)
}

// RunInTransaction opens a transaction and hands the caller a store whose
// reads/writes are scoped to it; the transaction commits if fn returns nil
// and rolls back otherwise.
func (s *StatemachineStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context, store statemachine.Store) error) error {
	return database.WithTransaction(ctx, s.db, func(tx pgx.Tx) error {
		return fn(ctx, &StatemachineStore{db: s.db, q: tx})
	})
}
