package domain

import "time"

// RouteStatus is a route's position in its state machine.
type RouteStatus string

const (
	RouteDraft      RouteStatus = "draft"
	RouteOptimized  RouteStatus = "optimized"
	RouteDispatched RouteStatus = "dispatched"
	RouteInProgress RouteStatus = "in_progress"
	RouteCompleted  RouteStatus = "completed"
	RouteCancelled  RouteStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s RouteStatus) IsTerminal() bool {
	return s == RouteCompleted || s == RouteCancelled
}

// StopOutcome is what actually happened when a driver reached a stop.
type StopOutcome string

const (
	StopPending   StopOutcome = "pending"
	StopArrived   StopOutcome = "arrived"
	StopDelivered StopOutcome = "delivered"
	StopSkipped   StopOutcome = "skipped"
	StopFailed    StopOutcome = "failed"
)

// IsTerminal reports whether the outcome will not change again.
func (o StopOutcome) IsTerminal() bool {
	return o == StopDelivered || o == StopSkipped || o == StopFailed
}

// OptimizationMethod tags how a route's stop sequence was produced.
type OptimizationMethod string

const (
	MethodCheapestArcInsertion OptimizationMethod = "cheapest_arc_insertion"
	MethodGuidedLocalSearch    OptimizationMethod = "guided_local_search"
	MethodManual               OptimizationMethod = "manual"
)

// Route is one driver's ordered tour for one operating date.
type Route struct {
	ID                string             `json:"id"`
	OperatingDate     time.Time          `json:"operating_date"`
	DriverID          string             `json:"driver_id"`
	Status            RouteStatus        `json:"status"`
	Stops             []RouteStop        `json:"stops"`
	TotalDistanceMeters float64          `json:"total_distance_meters"`
	TotalDurationSeconds float64         `json:"total_duration_seconds"`
	Method            OptimizationMethod `json:"method"`
	Fallback          bool               `json:"fallback"`
	Polyline          string             `json:"polyline,omitempty"`
	Version           int64              `json:"version"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// RouteStop is one visit within a Route.
type RouteStop struct {
	Position           int         `json:"position"`
	OrderID            string      `json:"order_id"`
	PlannedArrivalMinute int       `json:"planned_arrival_minute"`
	PlannedServiceMinutes int      `json:"planned_service_minutes"`
	ActualArrival      *time.Time  `json:"actual_arrival,omitempty"`
	ActualDeparture    *time.Time  `json:"actual_departure,omitempty"`
	Outcome            StopOutcome `json:"outcome"`
}

// AllStopsTerminal reports whether every stop has reached a terminal
// outcome, the precondition for route.completed.
func (r *Route) AllStopsTerminal() bool {
	for _, s := range r.Stops {
		if !s.Outcome.IsTerminal() {
			return false
		}
	}
	return true
}

// HasNonPendingStop reports whether at least one stop has been visited,
// the precondition for route.in_progress.
func (r *Route) HasNonPendingStop() bool {
	for _, s := range r.Stops {
		if s.Outcome != StopPending {
			return true
		}
	}
	return false
}
