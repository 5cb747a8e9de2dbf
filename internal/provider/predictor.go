package provider

import (
	"context"
	"time"

	"dispatch/pkg/apperror"
	"dispatch/pkg/client"
)

// Prediction is one customer's predicted next order.
type Prediction struct {
	CustomerID    string
	ProductCounts map[string]int
	Confidence    float64
	TargetDate    time.Time
}

// Predictor forecasts which customers are likely to need a replenishment
// delivery on a target date. internal/predictor consumes this to generate
// draft orders.
type Predictor interface {
	Predict(ctx context.Context, customerIDs []string, targetDate time.Time) ([]Prediction, error)
}

// HTTPPredictor is the real Predictor, backed by an HTTP prediction
// service and guarded by a circuit breaker.
type HTTPPredictor struct {
	client  *client.PredictorClient
	breaker *Breaker
}

// NewHTTPPredictor wraps an HTTP predictor client with breaker protection.
func NewHTTPPredictor(c *client.PredictorClient, breaker *Breaker) *HTTPPredictor {
	return &HTTPPredictor{client: c, breaker: breaker}
}

// Predict requests predictions for a batch of customers. The caller
// controls batch size; the predictor may shard internally.
func (p *HTTPPredictor) Predict(ctx context.Context, customerIDs []string, targetDate time.Time) ([]Prediction, error) {
	if err := p.breaker.Allow(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeProviderUnavailable, "predictor circuit open")
	}

	resp, err := p.client.Predict(ctx, &client.PredictRequest{
		CustomerIDs: customerIDs,
		AsOf:        time.Now(),
		HorizonDays: 1,
	})
	if err != nil {
		p.breaker.Failure()
		return nil, apperror.Wrap(err, apperror.CodeProviderUnavailable, "predictor request failed")
	}
	p.breaker.Success()

	out := make([]Prediction, 0, len(resp.Predictions))
	for _, pr := range resp.Predictions {
		out = append(out, Prediction{
			CustomerID:    pr.CustomerID,
			ProductCounts: pr.ProductCounts,
			Confidence:    pr.Confidence,
			TargetDate:    targetDate,
		})
	}
	return out, nil
}
