package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"dispatch/internal/domain"
	"dispatch/internal/routeassembler"
	"dispatch/pkg/database"
)

// RouteAssemblerStore is the Postgres-backed routeassembler.Store.
type RouteAssemblerStore struct {
	db database.DB
	q  querier
}

// NewRouteAssemblerStore wraps a connection pool for use by
// internal/routeassembler.
func NewRouteAssemblerStore(db database.DB) *RouteAssemblerStore {
	return &RouteAssemblerStore{db: db, q: db}
}

func (s *RouteAssemblerStore) GetOrders(ctx context.Context, ids []string) (map[string]*domain.Order, error) {
	return getOrders(ctx, s.q, ids)
}

func (s *RouteAssemblerStore) CreateRoute(ctx context.Context, route *domain.Route) error {
	return createRoute(ctx, s.q, route)
}

func (s *RouteAssemblerStore) SaveOrder(ctx context.Context, order *domain.Order) error {
	return saveOrder(ctx, s.q, order)
}

func (s *RouteAssemblerStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context, store routeassembler.Store) error) error {
	return database.WithTransaction(ctx, s.db, func(tx pgx.Tx) error {
		return fn(ctx, &RouteAssemblerStore{db: s.db, q: tx})
	})
}
