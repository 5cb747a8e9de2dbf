package statemachine

import (
	"context"
	"time"

	"dispatch/internal/domain"
	"dispatch/pkg/apperror"
)

// TxStore extends Store with a transactional boundary: RunInTransaction
// must give fn a Store whose Get/Save calls are only visible to other
// callers after fn returns nil, and must roll back entirely if fn errors.
type TxStore interface {
	Store
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}

// Machine enforces the order/route transition graphs, commits each
// accepted transition transactionally against store, and publishes
// exactly one event per affected entity to bus in commit order.
type Machine struct {
	store TxStore
	bus   Bus
}

// NewMachine builds a state machine over the given transactional store
// and event bus.
func NewMachine(store TxStore, bus Bus) *Machine {
	return &Machine{store: store, bus: bus}
}

// TransitionOrder validates and commits an order status change, checked
// against expectedVersion for optimistic concurrency.
func (m *Machine) TransitionOrder(ctx context.Context, orderID string, to domain.OrderStatus, expectedVersion int64) (*domain.Order, error) {
	var updated *domain.Order
	err := m.store.RunInTransaction(ctx, func(ctx context.Context, s Store) error {
		order, err := s.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Version != expectedVersion {
			return errVersionConflict("order", orderID)
		}
		if !orderTransitionAllowed(order.Status, to) {
			return errInvalidOrderTransition(string(order.Status), string(to))
		}
		if to == domain.OrderAssigned {
			return apperror.New(apperror.CodeValidation, "use AssignOrderToRoute to move an order to assigned")
		}

		order.Status = to
		order.Version++
		order.UpdatedAt = time.Now()
		if to == domain.OrderCancelled {
			order.AssignedRoute = nil
		}
		if err := s.SaveOrder(ctx, order); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.publishOrder(ctx, updated)
	return updated, nil
}

// AssignOrderToRoute moves an order from confirmed to assigned, requiring
// the referenced route to be in a status §4.6 allows an assignment to
// point at.
func (m *Machine) AssignOrderToRoute(ctx context.Context, orderID, routeID string, expectedVersion int64) (*domain.Order, error) {
	var updated *domain.Order
	err := m.store.RunInTransaction(ctx, func(ctx context.Context, s Store) error {
		order, err := s.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Version != expectedVersion {
			return errVersionConflict("order", orderID)
		}
		if !orderTransitionAllowed(order.Status, domain.OrderAssigned) {
			return errInvalidOrderTransition(string(order.Status), string(domain.OrderAssigned))
		}
		route, err := s.GetRoute(ctx, routeID)
		if err != nil {
			return err
		}
		if !validRouteAssignmentStatuses[route.Status] {
			return apperror.NewWithField(apperror.CodeConflict, "route "+routeID+" is not in an assignable status", "assigned_route")
		}

		order.Status = domain.OrderAssigned
		order.AssignedRoute = &routeID
		order.Version++
		order.UpdatedAt = time.Now()
		if err := s.SaveOrder(ctx, order); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.publishOrder(ctx, updated)
	return updated, nil
}

// TransitionRoute validates and commits a route status change. Cancelling
// a route unassigns every non-terminal order it carries back to confirmed, in the same
// transaction, and every affected order is published alongside the route.
func (m *Machine) TransitionRoute(ctx context.Context, routeID string, to domain.RouteStatus, expectedVersion int64) (*domain.Route, []*domain.Order, error) {
	var updatedRoute *domain.Route
	var unassignedOrders []*domain.Order

	err := m.store.RunInTransaction(ctx, func(ctx context.Context, s Store) error {
		route, err := s.GetRoute(ctx, routeID)
		if err != nil {
			return err
		}
		if route.Version != expectedVersion {
			return errVersionConflict("route", routeID)
		}
		if !routeTransitionAllowed(route.Status, to) {
			return errInvalidRouteTransition(string(route.Status), string(to))
		}
		if to == domain.RouteInProgress && !route.HasNonPendingStop() {
			return apperror.New(apperror.CodeConflict, "route cannot start in_progress with every stop still pending")
		}
		if to == domain.RouteCompleted && !route.AllStopsTerminal() {
			return apperror.New(apperror.CodeConflict, "route cannot complete while a stop outcome is not terminal")
		}

		route.Status = to
		route.Version++
		route.UpdatedAt = time.Now()
		if err := s.SaveRoute(ctx, route); err != nil {
			return err
		}
		updatedRoute = route

		if to == domain.RouteCancelled {
			orders, err := s.OrdersByRoute(ctx, routeID)
			if err != nil {
				return err
			}
			for _, order := range orders {
				if order.Status.IsTerminal() {
					continue
				}
				order.Status = domain.OrderConfirmed
				order.AssignedRoute = nil
				order.Version++
				order.UpdatedAt = time.Now()
				if err := s.SaveOrder(ctx, order); err != nil {
					return err
				}
				unassignedOrders = append(unassignedOrders, order)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	m.publishRoute(ctx, updatedRoute)
	for _, order := range unassignedOrders {
		m.publishOrder(ctx, order)
	}
	return updatedRoute, unassignedOrders, nil
}

func (m *Machine) publishOrder(ctx context.Context, order *domain.Order) {
	event := domain.Event{
		EventID:    order.ID + ":" + string(order.Status) + ":" + order.UpdatedAt.Format(time.RFC3339Nano),
		Kind:       orderEventKind(order.Status),
		Payload:    order,
		OccurredAt: order.UpdatedAt,
	}
	_ = m.bus.Publish(ctx, domain.RoomOrders, event)
	_ = m.bus.Publish(ctx, domain.RoomForCustomer(order.CustomerID), event)
}

func (m *Machine) publishRoute(ctx context.Context, route *domain.Route) {
	event := domain.Event{
		EventID:    route.ID + ":" + string(route.Status) + ":" + route.UpdatedAt.Format(time.RFC3339Nano),
		Kind:       domain.EventRouteUpdated,
		Payload:    route,
		OccurredAt: route.UpdatedAt,
	}
	_ = m.bus.Publish(ctx, domain.RoomRoutes, event)
	if route.DriverID != "" {
		_ = m.bus.Publish(ctx, domain.RoomForDriver(route.DriverID), event)
	}
}

func orderEventKind(status domain.OrderStatus) domain.EventKind {
	switch status {
	case domain.OrderAssigned:
		return domain.EventOrderAssigned
	default:
		return domain.EventOrderUpdated
	}
}
