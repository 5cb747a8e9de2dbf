package bulkimport

import (
	"context"

	"dispatch/internal/domain"
)

// Store upserts the customers and orders a bulk import parses out of a
// spreadsheet. Each call is independent; a rejected row never rolls back
// a row already persisted.
type Store interface {
	UpsertCustomer(ctx context.Context, c *domain.Customer) error
	CreateOrder(ctx context.Context, order *domain.Order) error
}
