// Package predictor turns external replenishment predictions into draft
// orders awaiting human confirmation, per spec.md §4.7. It is designed to
// run as one orchestrator.Handler per batch-predict job.
package predictor

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// Store is the persistence surface the generator needs: reading customers
// to predict for, checking for an existing open order, and creating the
// draft.
type Store interface {
	// CustomersByID loads reference data for a batch of customer ids.
	CustomersByID(ctx context.Context, ids []string) (map[string]*domain.Customer, error)
	// HasOpenOrder reports whether customerID already has a non-terminal
	// order for targetDate, regardless of source.
	HasOpenOrder(ctx context.Context, customerID string, targetDate time.Time) (bool, error)
	CreateOrder(ctx context.Context, order *domain.Order) error
}

// Bus publishes the events a newly created draft produces.
type Bus interface {
	Publish(ctx context.Context, room domain.Room, event domain.Event) error
}
