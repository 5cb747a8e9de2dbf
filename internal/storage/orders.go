package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"dispatch/internal/domain"
	"dispatch/pkg/apperror"
)

func getOrder(ctx context.Context, q querier, id string) (*domain.Order, error) {
	row := q.QueryRow(ctx, `
		SELECT id, customer_id, delivery_date, line_items, priority, status,
		       assigned_route, window_open, window_close, service_minutes,
		       source, prediction_batch_id, version, created_at, updated_at
		FROM orders WHERE id = $1 FOR UPDATE`, id)
	return scanOrder(row)
}

func getOrders(ctx context.Context, q querier, ids []string) (map[string]*domain.Order, error) {
	out := map[string]*domain.Order{}
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := q.Query(ctx, `
		SELECT id, customer_id, delivery_date, line_items, priority, status,
		       assigned_route, window_open, window_close, service_minutes,
		       source, prediction_batch_id, version, created_at, updated_at
		FROM orders WHERE id = ANY($1) FOR UPDATE`, ids)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "querying orders")
	}
	defer rows.Close()
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out[order.ID] = order
	}
	return out, rows.Err()
}

func ordersByRoute(ctx context.Context, q querier, routeID string) ([]*domain.Order, error) {
	rows, err := q.Query(ctx, `
		SELECT id, customer_id, delivery_date, line_items, priority, status,
		       assigned_route, window_open, window_close, service_minutes,
		       source, prediction_batch_id, version, created_at, updated_at
		FROM orders WHERE assigned_route = $1 FOR UPDATE`, routeID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "querying orders by route")
	}
	defer rows.Close()
	var out []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, rows.Err()
}

// ordersForDate returns every order due on targetDate in a status eligible
// for solving (draft or confirmed). Unlike getOrders/getOrder this is a
// plain read used to build a solve request, not a mutation path, so it
// does not take a row lock.
func ordersForDate(ctx context.Context, q querier, targetDate time.Time) ([]*domain.Order, error) {
	rows, err := q.Query(ctx, `
		SELECT id, customer_id, delivery_date, line_items, priority, status,
		       assigned_route, window_open, window_close, service_minutes,
		       source, prediction_batch_id, version, created_at, updated_at
		FROM orders WHERE delivery_date = $1 AND status IN ($2, $3)`,
		targetDate, domain.OrderDraft, domain.OrderConfirmed)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "querying orders for date")
	}
	defer rows.Close()
	var out []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, rows.Err()
}

func hasOpenOrder(ctx context.Context, q querier, customerID string, targetDate time.Time) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM orders
			WHERE customer_id = $1 AND delivery_date = $2
			  AND status NOT IN ($3, $4, $5)
		)`, customerID, targetDate, domain.OrderDelivered, domain.OrderCancelled, domain.OrderFailed,
	).Scan(&exists)
	if err != nil {
		return false, apperror.Wrap(err, apperror.CodeInternal, "checking for an open order")
	}
	return exists, nil
}

func createOrder(ctx context.Context, q querier, order *domain.Order) error {
	_, err := q.Exec(ctx, `
		INSERT INTO orders (
			id, customer_id, delivery_date, line_items, priority, status,
			assigned_route, window_open, window_close, service_minutes,
			source, prediction_batch_id, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		order.ID, order.CustomerID, order.DeliveryDate, order.LineItems, order.Priority, order.Status,
		order.AssignedRoute, order.Window.OpenMinute, order.Window.CloseMinute, order.ServiceMinutes,
		order.Source, order.PredictionBatchID, order.Version, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeInternal, "inserting order")
	}
	return nil
}

func saveOrder(ctx context.Context, q querier, order *domain.Order) error {
	tag, err := q.Exec(ctx, `
		UPDATE orders SET
			status = $2, assigned_route = $3, version = $4, updated_at = $5
		WHERE id = $1`,
		order.ID, order.Status, order.AssignedRoute, order.Version, order.UpdatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeInternal, "saving order")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewWithField(apperror.CodeNotFound, "order not found", "order_id")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	err := row.Scan(
		&order.ID, &order.CustomerID, &order.DeliveryDate, &order.LineItems, &order.Priority, &order.Status,
		&order.AssignedRoute, &order.Window.OpenMinute, &order.Window.CloseMinute, &order.ServiceMinutes,
		&order.Source, &order.PredictionBatchID, &order.Version, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewWithField(apperror.CodeNotFound, "order not found", "order_id")
		}
		return nil, apperror.Wrap(err, apperror.CodeInternal, "scanning order")
	}
	return &order, nil
}
