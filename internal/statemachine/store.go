package statemachine

import (
	"context"

	"dispatch/internal/domain"
)

// Store persists orders and routes. Save calls write the entity as given;
// the optimistic-concurrency check (a version-conflict error, see errs.go)
// is made by Machine against the entity it read in the same
// RunInTransaction call.
type Store interface {
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	SaveOrder(ctx context.Context, order *domain.Order) error
	GetRoute(ctx context.Context, id string) (*domain.Route, error)
	SaveRoute(ctx context.Context, route *domain.Route) error
	OrdersByRoute(ctx context.Context, routeID string) ([]*domain.Order, error)
}

// Bus publishes committed entity events to interested subscribers. The
// event bus (internal/eventbus) implements this; tests use a recording
// fake.
type Bus interface {
	Publish(ctx context.Context, room domain.Room, event domain.Event) error
}
