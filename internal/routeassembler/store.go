// Package routeassembler turns one day's solver output into persisted
// Route/RouteStop records, fetching directions for each vehicle's stop
// sequence and assigning the referenced orders, all in one transaction
// per spec.md §4.3.
package routeassembler

import (
	"context"

	"dispatch/internal/domain"
)

// Store persists the routes and orders an assembly touches. RunInTransaction
// must roll back every write if fn returns an error, matching §4.3's
// "either all routes commit or none."
type Store interface {
	GetOrders(ctx context.Context, ids []string) (map[string]*domain.Order, error)
	CreateRoute(ctx context.Context, route *domain.Route) error
	SaveOrder(ctx context.Context, order *domain.Order) error
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}

// Bus publishes the events committed routes/orders produce.
type Bus interface {
	Publish(ctx context.Context, room domain.Room, event domain.Event) error
}
