package storage

import (
	"context"
	"time"

	"dispatch/internal/domain"
	"dispatch/pkg/database"
)

// PredictorStore is the Postgres-backed predictor.Store.
type PredictorStore struct {
	db database.DB
}

// NewPredictorStore wraps a connection pool for use by internal/predictor.
func NewPredictorStore(db database.DB) *PredictorStore {
	return &PredictorStore{db: db}
}

func (s *PredictorStore) CustomersByID(ctx context.Context, ids []string) (map[string]*domain.Customer, error) {
	return customersByID(ctx, s.db, ids)
}

func (s *PredictorStore) HasOpenOrder(ctx context.Context, customerID string, targetDate time.Time) (bool, error) {
	return hasOpenOrder(ctx, s.db, customerID, targetDate)
}

func (s *PredictorStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	return createOrder(ctx, s.db, order)
}

// ListActiveCustomerIDs returns every customer eligible for draft
// generation, for job handlers that run batch prediction over the whole
// customer base rather than a caller-supplied subset.
func (s *PredictorStore) ListActiveCustomerIDs(ctx context.Context) ([]string, error) {
	return listActiveCustomerIDs(ctx, s.db)
}
