package domain

import "time"

// OrderStatus is an order's position in its state machine. The zero value
// is intentionally not a valid status; every Order must be constructed with
// one explicitly.
type OrderStatus string

const (
	OrderDraft     OrderStatus = "draft"
	OrderConfirmed OrderStatus = "confirmed"
	OrderAssigned  OrderStatus = "assigned"
	OrderEnRoute   OrderStatus = "en_route"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
	OrderFailed    OrderStatus = "failed"
)

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderDelivered, OrderCancelled, OrderFailed:
		return true
	default:
		return false
	}
}

// OrderPriority affects solver tie-breaking and office triage; it does not
// alter feasibility.
type OrderPriority string

const (
	PriorityNormal OrderPriority = "normal"
	PriorityUrgent OrderPriority = "urgent"
)

// OrderSource distinguishes orders office staff entered directly from those
// the predictive draft generator produced.
type OrderSource string

const (
	OrderSourceManual     OrderSource = "manual"
	OrderSourcePrediction OrderSource = "prediction"
)

// Window is a time-of-day interval expressed in minutes from the start of
// the operating day, e.g. 540 == 09:00.
type Window struct {
	OpenMinute  int `json:"open_minute"`
	CloseMinute int `json:"close_minute"`
}

// Contains reports whether minute falls within the window, inclusive.
func (w Window) Contains(minute int) bool {
	return minute >= w.OpenMinute && minute <= w.CloseMinute
}

// Order is a request to deliver one or more cylinders to a customer on a
// given date. Mutation of Status and AssignedRoute flows exclusively
// through internal/statemachine; every other field is set at creation.
type Order struct {
	ID             string        `json:"id"`
	CustomerID     string        `json:"customer_id"`
	DeliveryDate   time.Time     `json:"delivery_date"`
	LineItems      Quantities    `json:"line_items"`
	Priority       OrderPriority `json:"priority"`
	Status         OrderStatus   `json:"status"`
	AssignedRoute  *string       `json:"assigned_route,omitempty"`
	Window         Window        `json:"window"`
	ServiceMinutes int           `json:"service_minutes"`
	Source         OrderSource   `json:"source"`
	PredictionBatchID *string    `json:"prediction_batch_id,omitempty"`
	Version        int64         `json:"version"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// HasDemand reports whether the order carries at least one cylinder, the
// invariant every Order must satisfy at creation.
func (o *Order) HasDemand() bool {
	return !o.LineItems.IsZero()
}

// Customer is read-only reference data maintained outside the core.
type Customer struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Location          Location       `json:"location"`
	Window            Window         `json:"window"`
	ServiceMinutes    int            `json:"service_minutes"`
	SubscriptionCadenceDays map[ProductSize]int `json:"subscription_cadence_days,omitempty"`
}
