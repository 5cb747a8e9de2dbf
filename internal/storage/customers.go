package storage

import (
	"context"

	"dispatch/internal/domain"
	"dispatch/pkg/apperror"
)

func upsertCustomer(ctx context.Context, q querier, c *domain.Customer) error {
	_, err := q.Exec(ctx, `
		INSERT INTO customers (id, name, lat, lng, window_open, window_close, service_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, lat = EXCLUDED.lat, lng = EXCLUDED.lng,
			window_open = EXCLUDED.window_open, window_close = EXCLUDED.window_close,
			service_minutes = EXCLUDED.service_minutes`,
		c.ID, c.Name, c.Location.Lat, c.Location.Lng, c.Window.OpenMinute, c.Window.CloseMinute, c.ServiceMinutes,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeInternal, "upserting customer")
	}
	return nil
}

// listActiveCustomerIDs returns every customer eligible for draft
// generation. All customers are candidates; Generate itself suppresses
// any with an open order already on the target date.
func listActiveCustomerIDs(ctx context.Context, q querier) ([]string, error) {
	rows, err := q.Query(ctx, `SELECT id FROM customers ORDER BY id`)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "querying customer ids")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperror.Wrap(err, apperror.CodeInternal, "scanning customer id")
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func customersByID(ctx context.Context, q querier, ids []string) (map[string]*domain.Customer, error) {
	out := map[string]*domain.Customer{}
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := q.Query(ctx, `
		SELECT id, name, lat, lng, window_open, window_close, service_minutes
		FROM customers WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "querying customers")
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Location.Lat, &c.Location.Lng,
			&c.Window.OpenMinute, &c.Window.CloseMinute, &c.ServiceMinutes,
		); err != nil {
			return nil, apperror.Wrap(err, apperror.CodeInternal, "scanning customer")
		}
		out[c.ID] = &c
	}
	return out, rows.Err()
}
