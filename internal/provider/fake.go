package provider

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// FakeRoutingProvider is a deterministic RoutingProvider for tests: it
// answers every Matrix/Directions call with haversine-derived values, so
// solver/assembler tests don't depend on a live routing service.
type FakeRoutingProvider struct {
	SpeedKMH float64
	// FailNext, if >0, causes the next N calls to return an error,
	// for exercising breaker/fallback behavior.
	FailNext int
}

// NewFakeRoutingProvider creates a fake that estimates via haversine at
// the given average speed.
func NewFakeRoutingProvider(speedKMH float64) *FakeRoutingProvider {
	if speedKMH <= 0 {
		speedKMH = 30
	}
	return &FakeRoutingProvider{SpeedKMH: speedKMH}
}

func (f *FakeRoutingProvider) Matrix(ctx context.Context, origins, destinations []domain.Location, departAt time.Time) ([][]MatrixCell, error) {
	if f.FailNext > 0 {
		f.FailNext--
		return nil, ErrBreakerOpen{}
	}

	grid := make([][]MatrixCell, len(origins))
	for i, o := range origins {
		grid[i] = make([]MatrixCell, len(destinations))
		for j, d := range destinations {
			dist := domain.HaversineMeters(o, d)
			dur, _ := EstimateDuration(dist, f.SpeedKMH)
			grid[i][j] = MatrixCell{
				DistanceMeters:  dist,
				DurationSeconds: dur.Seconds(),
				Approximated:    true,
			}
		}
	}
	return grid, nil
}

func (f *FakeRoutingProvider) Directions(ctx context.Context, stops []domain.Location, departAt time.Time) (*Directions, error) {
	if f.FailNext > 0 {
		f.FailNext--
		return nil, ErrBreakerOpen{}
	}

	var totalDist float64
	for i := 1; i < len(stops); i++ {
		totalDist += domain.HaversineMeters(stops[i-1], stops[i])
	}
	dur, _ := EstimateDuration(totalDist, f.SpeedKMH)
	return &Directions{
		DistanceMeters:  totalDist,
		DurationSeconds: dur.Seconds(),
		Polyline:        "",
	}, nil
}

// FakePredictor is a deterministic Predictor for tests: it returns a fixed
// prediction set, configurable per customer.
type FakePredictor struct {
	ByCustomer map[string]Prediction
}

// NewFakePredictor creates a fake predictor seeded with canned results.
func NewFakePredictor(byCustomer map[string]Prediction) *FakePredictor {
	if byCustomer == nil {
		byCustomer = make(map[string]Prediction)
	}
	return &FakePredictor{ByCustomer: byCustomer}
}

func (f *FakePredictor) Predict(ctx context.Context, customerIDs []string, targetDate time.Time) ([]Prediction, error) {
	out := make([]Prediction, 0, len(customerIDs))
	for _, id := range customerIDs {
		if p, ok := f.ByCustomer[id]; ok {
			p.TargetDate = targetDate
			out = append(out, p)
		}
	}
	return out, nil
}
