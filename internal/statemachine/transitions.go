// Package statemachine enforces the order and route status transition
// graphs, commits each accepted transition transactionally, and emits
// exactly one event per affected entity in commit order.
package statemachine

import "dispatch/internal/domain"

var orderTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderDraft:     {domain.OrderConfirmed, domain.OrderCancelled},
	domain.OrderConfirmed: {domain.OrderAssigned, domain.OrderCancelled},
	domain.OrderAssigned:  {domain.OrderEnRoute, domain.OrderCancelled},
	domain.OrderEnRoute:   {domain.OrderDelivered, domain.OrderFailed, domain.OrderCancelled},
}

func orderTransitionAllowed(from, to domain.OrderStatus) bool {
	for _, candidate := range orderTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

var routeTransitions = map[domain.RouteStatus][]domain.RouteStatus{
	domain.RouteDraft:      {domain.RouteOptimized, domain.RouteCancelled},
	domain.RouteOptimized:  {domain.RouteDispatched, domain.RouteCancelled},
	domain.RouteDispatched: {domain.RouteInProgress, domain.RouteCancelled},
	domain.RouteInProgress: {domain.RouteCompleted},
}

func routeTransitionAllowed(from, to domain.RouteStatus) bool {
	for _, candidate := range routeTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// validRouteAssignmentStatuses is the set of route statuses a valid
// assigned_route reference may point to, per §4.6's invariant on
// order.assigned.
var validRouteAssignmentStatuses = map[domain.RouteStatus]bool{
	domain.RouteOptimized:  true,
	domain.RouteDispatched: true,
	domain.RouteInProgress: true,
}
