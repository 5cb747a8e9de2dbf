package storage

import (
	"context"

	"dispatch/internal/domain"
	"dispatch/pkg/database"
)

// BulkImportStore is the Postgres-backed bulkimport.Store. Each row is
// upserted independently; a bad row fails that row without rolling back
// rows already committed, matching spec.md's per-row validation model.
type BulkImportStore struct {
	db database.DB
}

// NewBulkImportStore wraps a connection pool for use by internal/bulkimport.
func NewBulkImportStore(db database.DB) *BulkImportStore {
	return &BulkImportStore{db: db}
}

func (s *BulkImportStore) UpsertCustomer(ctx context.Context, c *domain.Customer) error {
	return upsertCustomer(ctx, s.db, c)
}

func (s *BulkImportStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	return createOrder(ctx, s.db, order)
}
