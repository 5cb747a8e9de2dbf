package routeassembler

import (
	"context"
	"sync"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/provider"
	"dispatch/internal/vrp"
	"dispatch/pkg/apperror"
)

type memStore struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	routes map[string]*domain.Route
}

func newMemStore(orders []*domain.Order) *memStore {
	s := &memStore{orders: map[string]*domain.Order{}, routes: map[string]*domain.Route{}}
	for _, o := range orders {
		cp := *o
		s.orders[o.ID] = &cp
	}
	return s
}

func (s *memStore) GetOrders(ctx context.Context, ids []string) (map[string]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]*domain.Order{}
	for _, id := range ids {
		if o, ok := s.orders[id]; ok {
			cp := *o
			out[id] = &cp
		}
	}
	return out, nil
}

func (s *memStore) CreateRoute(ctx context.Context, route *domain.Route) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *route
	s.routes[route.ID] = &cp
	return nil
}

func (s *memStore) SaveOrder(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *order
	s.orders[order.ID] = &cp
	return nil
}

// RunInTransaction rolls back writes by snapshotting state before fn runs
// and restoring it if fn returns an error, mirroring pgx rollback
// semantics closely enough for these tests.
func (s *memStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	s.mu.Lock()
	ordersSnapshot := map[string]*domain.Order{}
	for id, o := range s.orders {
		cp := *o
		ordersSnapshot[id] = &cp
	}
	routesSnapshot := map[string]*domain.Route{}
	for id, r := range s.routes {
		cp := *r
		routesSnapshot[id] = &cp
	}
	s.mu.Unlock()

	if err := fn(ctx, s); err != nil {
		s.mu.Lock()
		s.orders = ordersSnapshot
		s.routes = routesSnapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []domain.Event
	rooms  []domain.Room
}

func (b *recordingBus) Publish(ctx context.Context, room domain.Room, event domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	b.rooms = append(b.rooms, room)
	return nil
}

func order(id, customerID string, status domain.OrderStatus) *domain.Order {
	return &domain.Order{
		ID:         id,
		CustomerID: customerID,
		Status:     status,
		LineItems:  domain.Quantities{1},
		Version:    1,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

func stopFor(o *domain.Order, lat, lng float64) vrp.Stop {
	return vrp.Stop{
		ID:             o.ID,
		Location:       domain.Location{Lat: lat, Lng: lng},
		Demand:         o.LineItems,
		ServiceMinutes: 10,
	}
}

func TestAssembler_Assemble_PersistsRoutesAndAssignsOrders(t *testing.T) {
	o1 := order("order-1", "cust-1", domain.OrderConfirmed)
	o2 := order("order-2", "cust-2", domain.OrderDraft)
	store := newMemStore([]*domain.Order{o1, o2})
	bus := &recordingBus{}
	routing := provider.NewFakeRoutingProvider(30)
	a := New(store, bus, routing)

	in := Input{
		OperatingDate: time.Now(),
		Stops: map[string]vrp.Stop{
			"order-1": stopFor(o1, 10, 10),
			"order-2": stopFor(o2, 10.1, 10.1),
		},
		Result: &vrp.Result{
			Assignments: map[string][]vrp.StopAssignment{
				"vehicle-a": {
					{StopID: "order-1", ScheduledArrivalMinute: 540},
					{StopID: "order-2", ScheduledArrivalMinute: 560},
				},
			},
			Method: domain.MethodCheapestArcInsertion,
		},
	}

	routeIDs, err := a.Assemble(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected assemble error: %v", err)
	}
	if len(routeIDs) != 1 {
		t.Fatalf("expected one route, got %d", len(routeIDs))
	}

	route := store.routes[routeIDs[0]]
	if route == nil {
		t.Fatal("route was not persisted")
	}
	if route.DriverID != "vehicle-a" || len(route.Stops) != 2 {
		t.Errorf("unexpected route shape: %+v", route)
	}
	if route.Status != domain.RouteOptimized {
		t.Errorf("expected route status optimized, got %s", route.Status)
	}
	for i, stop := range route.Stops {
		if stop.Position != i+1 {
			t.Errorf("expected stop %d to have 1-based position %d, got %d", i, i+1, stop.Position)
		}
	}

	for _, id := range []string{"order-1", "order-2"} {
		saved := store.orders[id]
		if saved.Status != domain.OrderAssigned {
			t.Errorf("expected order %s assigned, got %s", id, saved.Status)
		}
		if saved.AssignedRoute == nil || *saved.AssignedRoute != route.ID {
			t.Errorf("expected order %s to reference route %s, got %+v", id, route.ID, saved.AssignedRoute)
		}
	}

	if len(bus.events) == 0 {
		t.Error("expected events to be published after commit")
	}
}

func TestAssembler_Assemble_AbortsOnNonAssignableOrder(t *testing.T) {
	o1 := order("order-1", "cust-1", domain.OrderAssigned) // already assigned elsewhere
	store := newMemStore([]*domain.Order{o1})
	bus := &recordingBus{}
	routing := provider.NewFakeRoutingProvider(30)
	a := New(store, bus, routing)

	in := Input{
		OperatingDate: time.Now(),
		Stops: map[string]vrp.Stop{
			"order-1": stopFor(o1, 10, 10),
		},
		Result: &vrp.Result{
			Assignments: map[string][]vrp.StopAssignment{
				"vehicle-a": {{StopID: "order-1", ScheduledArrivalMinute: 540}},
			},
		},
	}

	_, err := a.Assemble(context.Background(), in)
	if err == nil {
		t.Fatal("expected a conflict error")
	}
	appErr, ok := err.(*apperror.Error)
	if !ok || appErr.Code != apperror.CodeConflict {
		t.Errorf("expected CodeConflict, got %v", err)
	}
	if len(store.routes) != 0 {
		t.Error("expected no route to be persisted on conflict")
	}
	if len(bus.events) != 0 {
		t.Error("expected no events published on conflict")
	}
}

func TestAssembler_Assemble_AllOrNothingAcrossVehicles(t *testing.T) {
	o1 := order("order-1", "cust-1", domain.OrderConfirmed)
	o2 := order("order-2", "cust-2", domain.OrderCancelled) // not assignable
	store := newMemStore([]*domain.Order{o1, o2})
	bus := &recordingBus{}
	routing := provider.NewFakeRoutingProvider(30)
	a := New(store, bus, routing)

	in := Input{
		OperatingDate: time.Now(),
		Stops: map[string]vrp.Stop{
			"order-1": stopFor(o1, 10, 10),
			"order-2": stopFor(o2, 11, 11),
		},
		Result: &vrp.Result{
			Assignments: map[string][]vrp.StopAssignment{
				"vehicle-a": {{StopID: "order-1", ScheduledArrivalMinute: 540}},
				"vehicle-b": {{StopID: "order-2", ScheduledArrivalMinute: 540}},
			},
		},
	}

	_, err := a.Assemble(context.Background(), in)
	if err == nil {
		t.Fatal("expected a conflict error")
	}

	// vehicle-a's route must not have been committed even though its own
	// order was assignable: the whole batch is all-or-nothing.
	if len(store.routes) != 0 {
		t.Error("expected zero routes persisted when any vehicle conflicts")
	}
	if store.orders["order-1"].Status != domain.OrderConfirmed {
		t.Error("expected order-1 to remain untouched after abort")
	}
}

func TestAssembler_Assemble_EmptyResultIsNoop(t *testing.T) {
	store := newMemStore(nil)
	bus := &recordingBus{}
	routing := provider.NewFakeRoutingProvider(30)
	a := New(store, bus, routing)

	routeIDs, err := a.Assemble(context.Background(), Input{
		OperatingDate: time.Now(),
		Stops:         map[string]vrp.Stop{},
		Result:        &vrp.Result{Assignments: map[string][]vrp.StopAssignment{}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(routeIDs) != 0 {
		t.Errorf("expected no routes, got %v", routeIDs)
	}
}
