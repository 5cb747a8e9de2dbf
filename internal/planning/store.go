package planning

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// Store answers the read-only lookups needed to build one day's solve
// request. Persisting the solver's output is routeassembler's job, not
// this package's.
type Store interface {
	Drivers(ctx context.Context) ([]*domain.Driver, error)
	OrdersForDate(ctx context.Context, targetDate time.Time) ([]*domain.Order, error)
	CustomersByID(ctx context.Context, ids []string) (map[string]*domain.Customer, error)
}
