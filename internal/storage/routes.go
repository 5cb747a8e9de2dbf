package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"dispatch/internal/domain"
	"dispatch/pkg/apperror"
)

func getRoute(ctx context.Context, q querier, id string) (*domain.Route, error) {
	row := q.QueryRow(ctx, `
		SELECT id, operating_date, driver_id, status, total_distance_meters,
		       total_duration_seconds, method, fallback, polyline, version,
		       created_at, updated_at
		FROM routes WHERE id = $1 FOR UPDATE`, id)

	var route domain.Route
	err := row.Scan(
		&route.ID, &route.OperatingDate, &route.DriverID, &route.Status, &route.TotalDistanceMeters,
		&route.TotalDurationSeconds, &route.Method, &route.Fallback, &route.Polyline, &route.Version,
		&route.CreatedAt, &route.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewWithField(apperror.CodeNotFound, "route not found", "route_id")
		}
		return nil, apperror.Wrap(err, apperror.CodeInternal, "scanning route")
	}

	stops, err := routeStops(ctx, q, id)
	if err != nil {
		return nil, err
	}
	route.Stops = stops
	return &route, nil
}

func routeStops(ctx context.Context, q querier, routeID string) ([]domain.RouteStop, error) {
	rows, err := q.Query(ctx, `
		SELECT position, order_id, planned_arrival_minute, planned_service_minutes,
		       actual_arrival, actual_departure, outcome
		FROM route_stops WHERE route_id = $1 ORDER BY position`, routeID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "querying route stops")
	}
	defer rows.Close()

	var stops []domain.RouteStop
	for rows.Next() {
		var stop domain.RouteStop
		if err := rows.Scan(
			&stop.Position, &stop.OrderID, &stop.PlannedArrivalMinute, &stop.PlannedServiceMinutes,
			&stop.ActualArrival, &stop.ActualDeparture, &stop.Outcome,
		); err != nil {
			return nil, apperror.Wrap(err, apperror.CodeInternal, "scanning route stop")
		}
		stops = append(stops, stop)
	}
	return stops, rows.Err()
}

// createRoute inserts a freshly assembled route and its stops. Callers
// holding a transactional querier get atomicity between the route row and
// its stops for free.
func createRoute(ctx context.Context, q querier, route *domain.Route) error {
	_, err := q.Exec(ctx, `
		INSERT INTO routes (
			id, operating_date, driver_id, status, total_distance_meters,
			total_duration_seconds, method, fallback, polyline, version,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		route.ID, route.OperatingDate, route.DriverID, route.Status, route.TotalDistanceMeters,
		route.TotalDurationSeconds, route.Method, route.Fallback, route.Polyline, route.Version,
		route.CreatedAt, route.UpdatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeInternal, "inserting route")
	}

	for _, stop := range route.Stops {
		_, err := q.Exec(ctx, `
			INSERT INTO route_stops (
				route_id, position, order_id, planned_arrival_minute,
				planned_service_minutes, actual_arrival, actual_departure, outcome
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			route.ID, stop.Position, stop.OrderID, stop.PlannedArrivalMinute,
			stop.PlannedServiceMinutes, stop.ActualArrival, stop.ActualDeparture, stop.Outcome,
		)
		if err != nil {
			return apperror.Wrap(err, apperror.CodeInternal, "inserting route stop")
		}
	}
	return nil
}

func saveRoute(ctx context.Context, q querier, route *domain.Route) error {
	tag, err := q.Exec(ctx, `
		UPDATE routes SET status = $2, version = $3, updated_at = $4
		WHERE id = $1`,
		route.ID, route.Status, route.Version, route.UpdatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeInternal, "saving route")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewWithField(apperror.CodeNotFound, "route not found", "route_id")
	}

	for _, stop := range route.Stops {
		_, err := q.Exec(ctx, `
			UPDATE route_stops SET
				actual_arrival = $3, actual_departure = $4, outcome = $5
			WHERE route_id = $1 AND position = $2`,
			route.ID, stop.Position, stop.ActualArrival, stop.ActualDeparture, stop.Outcome,
		)
		if err != nil {
			return apperror.Wrap(err, apperror.CodeInternal, "saving route stop")
		}
	}
	return nil
}
