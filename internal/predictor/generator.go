package predictor

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/provider"
	"dispatch/pkg/apperror"
)

// DefaultServiceMinutes is applied to every generated draft; office staff
// adjust it on confirmation if the customer needs more or less time.
const DefaultServiceMinutes = 10

// Generator consumes a Predictor and materializes its output as draft
// orders for human review.
type Generator struct {
	store     Store
	bus       Bus
	predictor provider.Predictor
	log       *slog.Logger
}

// New constructs a Generator.
func New(store Store, bus Bus, predictor provider.Predictor, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{store: store, bus: bus, predictor: predictor, log: log}
}

// Result reports what a Generate call did, per customer.
type Result struct {
	Created []string // order ids created
	Skipped []string // customer ids skipped because an open order already exists
}

// Generate predicts replenishment for customerIDs on targetDate and creates
// a draft order for every customer the predictor returns a forecast for,
// except those who already have an open non-terminal order for that date.
// Every created draft shares batchID so a later office review can query
// the whole batch together.
func (g *Generator) Generate(ctx context.Context, customerIDs []string, targetDate time.Time, batchID string) (*Result, error) {
	if batchID == "" {
		batchID = uuid.New().String()
	}

	predictions, err := g.predictor.Predict(ctx, customerIDs, targetDate)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeProviderUnavailable, "predictor request failed")
	}

	customerIDsInPredictions := make([]string, 0, len(predictions))
	for _, p := range predictions {
		customerIDsInPredictions = append(customerIDsInPredictions, p.CustomerID)
	}
	customers, err := g.store.CustomersByID(ctx, customerIDsInPredictions)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, prediction := range predictions {
		customer, ok := customers[prediction.CustomerID]
		if !ok {
			g.log.Warn("predictor returned an unknown customer id, skipping", "customer_id", prediction.CustomerID)
			continue
		}

		open, err := g.store.HasOpenOrder(ctx, prediction.CustomerID, targetDate)
		if err != nil {
			return nil, err
		}
		if open {
			result.Skipped = append(result.Skipped, prediction.CustomerID)
			continue
		}

		lineItems, err := toQuantities(prediction.ProductCounts)
		if err != nil {
			g.log.Warn("dropping prediction with unparseable product counts", "customer_id", prediction.CustomerID, "error", err)
			continue
		}
		if lineItems.IsZero() {
			continue
		}

		batch := batchID
		order := &domain.Order{
			ID:                uuid.New().String(),
			CustomerID:        prediction.CustomerID,
			DeliveryDate:      targetDate,
			LineItems:         lineItems,
			Priority:          domain.PriorityNormal,
			Status:            domain.OrderDraft,
			Window:            customer.Window,
			ServiceMinutes:    serviceMinutes(customer),
			Source:            domain.OrderSourcePrediction,
			PredictionBatchID: &batch,
			Version:           1,
			CreatedAt:         time.Now(),
			UpdatedAt:         time.Now(),
		}

		if err := g.store.CreateOrder(ctx, order); err != nil {
			return nil, err
		}
		result.Created = append(result.Created, order.ID)
		g.publish(ctx, order)
	}

	return result, nil
}

func serviceMinutes(c *domain.Customer) int {
	if c.ServiceMinutes > 0 {
		return c.ServiceMinutes
	}
	return DefaultServiceMinutes
}

func toQuantities(counts map[string]int) (domain.Quantities, error) {
	var q domain.Quantities
	for sizeStr, n := range counts {
		size, err := domain.ParseProductSize(sizeStr)
		if err != nil {
			return q, err
		}
		q[size] = n
	}
	return q, nil
}

func (g *Generator) publish(ctx context.Context, order *domain.Order) {
	event := domain.Event{
		EventID:    order.ID + ":created",
		Kind:       domain.EventOrderCreated,
		Payload:    order,
		OccurredAt: time.Now(),
	}
	_ = g.bus.Publish(ctx, domain.RoomOrders, event)
	_ = g.bus.Publish(ctx, domain.RoomForCustomer(order.CustomerID), event)
}
