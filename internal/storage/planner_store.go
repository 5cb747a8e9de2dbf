package storage

import (
	"context"
	"time"

	"dispatch/internal/domain"
	"dispatch/pkg/database"
)

// PlannerStore answers the read-only lookups the optimize-day job handler
// needs to build a solve request: the drivers available and the orders
// due on the target date. It never mutates anything itself; persisting the
// solver's output is routeassembler's job, through RouteAssemblerStore.
type PlannerStore struct {
	db database.DB
}

// NewPlannerStore wraps a connection pool for use by the optimize-day job
// handler.
func NewPlannerStore(db database.DB) *PlannerStore {
	return &PlannerStore{db: db}
}

func (s *PlannerStore) Drivers(ctx context.Context) ([]*domain.Driver, error) {
	return listDrivers(ctx, s.db)
}

func (s *PlannerStore) OrdersForDate(ctx context.Context, targetDate time.Time) ([]*domain.Order, error) {
	return ordersForDate(ctx, s.db, targetDate)
}

func (s *PlannerStore) CustomersByID(ctx context.Context, ids []string) (map[string]*domain.Customer, error) {
	return customersByID(ctx, s.db, ids)
}
