package storage

import (
	"context"

	"dispatch/internal/domain"
	"dispatch/pkg/apperror"
)

func listDrivers(ctx context.Context, q querier) ([]*domain.Driver, error) {
	rows, err := q.Query(ctx, `
		SELECT id, name, capacity, shift_start, shift_end, start_lat, start_lng
		FROM drivers ORDER BY id`)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "querying drivers")
	}
	defer rows.Close()

	var out []*domain.Driver
	for rows.Next() {
		var d domain.Driver
		if err := rows.Scan(
			&d.ID, &d.Name, &d.Capacity, &d.ShiftStart, &d.ShiftEnd,
			&d.StartLocation.Lat, &d.StartLocation.Lng,
		); err != nil {
			return nil, apperror.Wrap(err, apperror.CodeInternal, "scanning driver")
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
