package routeassembler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/provider"
	"dispatch/internal/vrp"
	"dispatch/pkg/apperror"
)

// assignableOrderStatuses is the precondition every order referenced by a
// solve must already satisfy: it has not already been claimed by another
// route.
var assignableOrderStatuses = map[domain.OrderStatus]bool{
	domain.OrderDraft:     true,
	domain.OrderConfirmed: true,
}

// Assembler turns one solver Result into persisted routes. Vehicles are
// assembled one at a time in a deterministic order, but the whole batch
// commits or fails together: per spec.md §4.3, an assembly either produces
// every route or none of them.
type Assembler struct {
	store   Store
	bus     Bus
	routing provider.RoutingProvider
}

// New constructs an Assembler.
func New(store Store, bus Bus, routing provider.RoutingProvider) *Assembler {
	return &Assembler{store: store, bus: bus, routing: routing}
}

// Input is one day's solver output ready to be turned into routes.
type Input struct {
	OperatingDate time.Time
	Stops         map[string]vrp.Stop // keyed by stop ID, for location lookup
	Result        *vrp.Result
}

// Assemble persists a Route and its RouteStops for every vehicle the solver
// placed stops on, transitions each referenced order to assigned, and
// publishes the resulting events once the transaction commits. If any
// referenced order is not currently draft or confirmed, the whole assembly
// is aborted and a Conflict error naming the offending order ids is
// returned; no routes are persisted.
func (a *Assembler) Assemble(ctx context.Context, in Input) ([]string, error) {
	vehicleIDs := make([]string, 0, len(in.Result.Assignments))
	for vehicleID, assignments := range in.Result.Assignments {
		if len(assignments) > 0 {
			vehicleIDs = append(vehicleIDs, vehicleID)
		}
	}
	sort.Strings(vehicleIDs)

	if len(vehicleIDs) == 0 {
		return nil, nil
	}

	orderIDs := make([]string, 0)
	for _, vehicleID := range vehicleIDs {
		for _, assignment := range in.Result.Assignments[vehicleID] {
			orderIDs = append(orderIDs, assignment.StopID)
		}
	}

	var routeIDs []string
	var committedRoutes []*domain.Route
	var committedOrders []*domain.Order

	err := a.store.RunInTransaction(ctx, func(ctx context.Context, s Store) error {
		orders, err := s.GetOrders(ctx, orderIDs)
		if err != nil {
			return err
		}

		var conflicting []string
		for _, id := range orderIDs {
			order, ok := orders[id]
			if !ok || !assignableOrderStatuses[order.Status] {
				conflicting = append(conflicting, id)
			}
		}
		if len(conflicting) > 0 {
			return apperror.NewWithField(apperror.CodeConflict,
				fmt.Sprintf("orders not in draft or confirmed status: %v", conflicting), "order_ids")
		}

		now := time.Now()
		for _, vehicleID := range vehicleIDs {
			route, err := a.buildRoute(ctx, in, vehicleID, now)
			if err != nil {
				return err
			}
			if err := s.CreateRoute(ctx, route); err != nil {
				return err
			}
			routeIDs = append(routeIDs, route.ID)
			committedRoutes = append(committedRoutes, route)

			for _, stop := range route.Stops {
				order := orders[stop.OrderID]
				order.Status = domain.OrderAssigned
				routeID := route.ID
				order.AssignedRoute = &routeID
				order.Version++
				order.UpdatedAt = now
				if err := s.SaveOrder(ctx, order); err != nil {
					return err
				}
				committedOrders = append(committedOrders, order)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, route := range committedRoutes {
		a.publishRoute(ctx, route)
	}
	for _, order := range committedOrders {
		a.publishOrder(ctx, order)
	}

	return routeIDs, nil
}

func (a *Assembler) buildRoute(ctx context.Context, in Input, vehicleID string, now time.Time) (*domain.Route, error) {
	assignments := in.Result.Assignments[vehicleID]

	locations := make([]domain.Location, 0, len(assignments))
	stops := make([]domain.RouteStop, 0, len(assignments))
	for i, assignment := range assignments {
		stop, ok := in.Stops[assignment.StopID]
		if !ok {
			return nil, apperror.NewWithField(apperror.CodeInternal, "solver referenced an unknown stop id", "stop_id")
		}
		locations = append(locations, stop.Location)
		stops = append(stops, domain.RouteStop{
			Position:              i + 1,
			OrderID:               assignment.StopID,
			PlannedArrivalMinute:  assignment.ScheduledArrivalMinute,
			PlannedServiceMinutes: stop.ServiceMinutes,
			Outcome:               domain.StopPending,
		})
	}

	directions, err := a.routing.Directions(ctx, locations, in.OperatingDate)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeProviderUnavailable, "fetching directions for assembled route")
	}

	return &domain.Route{
		ID:                   uuid.New().String(),
		OperatingDate:        in.OperatingDate,
		DriverID:             vehicleID,
		Status:               domain.RouteOptimized,
		Stops:                stops,
		TotalDistanceMeters:  directions.DistanceMeters,
		TotalDurationSeconds: directions.DurationSeconds,
		Method:               in.Result.Method,
		Fallback:             in.Result.Fallback,
		Polyline:             directions.Polyline,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

func (a *Assembler) publishRoute(ctx context.Context, route *domain.Route) {
	event := domain.Event{
		EventID:    route.ID + ":created",
		Kind:       domain.EventRouteCreated,
		Payload:    route,
		OccurredAt: time.Now(),
	}
	_ = a.bus.Publish(ctx, domain.RoomRoutes, event)
	_ = a.bus.Publish(ctx, domain.RoomForDriver(route.DriverID), event)
}

func (a *Assembler) publishOrder(ctx context.Context, order *domain.Order) {
	event := domain.Event{
		EventID:    order.ID + ":assigned",
		Kind:       domain.EventOrderAssigned,
		Payload:    order,
		OccurredAt: time.Now(),
	}
	_ = a.bus.Publish(ctx, domain.RoomOrders, event)
	_ = a.bus.Publish(ctx, domain.RoomForCustomer(order.CustomerID), event)
}
