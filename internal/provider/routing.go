package provider

import (
	"context"
	"fmt"
	"time"

	"dispatch/internal/domain"
	"dispatch/pkg/apperror"
	"dispatch/pkg/client"
)

// MatrixCell is one distance/duration pair for an (origin, destination)
// lookup, with an Approximated flag set when the provider could not answer
// and the caller fell back to haversine estimation.
type MatrixCell struct {
	DistanceMeters  float64
	DurationSeconds float64
	Approximated    bool
}

// Directions is the realized path for an ordered stop sequence.
type Directions struct {
	DistanceMeters  float64
	DurationSeconds float64
	Polyline        string
}

// RoutingProvider answers distance/time-matrix and directions queries.
// internal/vrp consumes Matrix; internal/routeassembler consumes
// Directions once the solver has fixed a stop order.
type RoutingProvider interface {
	Matrix(ctx context.Context, origins, destinations []domain.Location, departAt time.Time) ([][]MatrixCell, error)
	Directions(ctx context.Context, stops []domain.Location, departAt time.Time) (*Directions, error)
}

// HTTPRoutingProvider is the real RoutingProvider, backed by an HTTP
// routing service and guarded by a circuit breaker.
type HTTPRoutingProvider struct {
	client  *client.RoutingClient
	breaker *Breaker
}

// NewHTTPRoutingProvider wraps an HTTP routing client with breaker
// protection.
func NewHTTPRoutingProvider(c *client.RoutingClient, breaker *Breaker) *HTTPRoutingProvider {
	return &HTTPRoutingProvider{client: c, breaker: breaker}
}

// Matrix requests a distance/time matrix from the routing provider. On
// circuit-open or transport failure it returns an apperror with
// CodeProviderUnavailable so the caller (internal/matrixcache) can fall
// back to haversine approximation.
func (p *HTTPRoutingProvider) Matrix(ctx context.Context, origins, destinations []domain.Location, departAt time.Time) ([][]MatrixCell, error) {
	if err := p.breaker.Allow(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeProviderUnavailable, "routing provider circuit open")
	}

	req := &client.MatrixRequest{
		Origins:      toLatLngs(origins),
		Destinations: toLatLngs(destinations),
	}

	resp, err := p.client.Matrix(ctx, req)
	if err != nil {
		p.breaker.Failure()
		return nil, apperror.Wrap(err, apperror.CodeProviderUnavailable, "routing provider matrix call failed")
	}
	p.breaker.Success()

	grid := make([][]MatrixCell, len(origins))
	for i := range grid {
		grid[i] = make([]MatrixCell, len(destinations))
	}
	for _, cell := range resp.Cells {
		if cell.OriginIndex < 0 || cell.OriginIndex >= len(origins) {
			continue
		}
		if cell.DestinationIndex < 0 || cell.DestinationIndex >= len(destinations) {
			continue
		}
		grid[cell.OriginIndex][cell.DestinationIndex] = MatrixCell{
			DistanceMeters:  cell.DistanceMeters,
			DurationSeconds: cell.DurationSeconds,
		}
	}
	return grid, nil
}

// Directions requests the realized path for an ordered stop sequence.
func (p *HTTPRoutingProvider) Directions(ctx context.Context, stops []domain.Location, departAt time.Time) (*Directions, error) {
	if err := p.breaker.Allow(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeProviderUnavailable, "routing provider circuit open")
	}

	resp, err := p.client.Directions(ctx, &client.DirectionsRequest{Stops: toLatLngs(stops)})
	if err != nil {
		p.breaker.Failure()
		return nil, apperror.Wrap(err, apperror.CodeProviderUnavailable, "routing provider directions call failed")
	}
	p.breaker.Success()

	return &Directions{
		DistanceMeters:  resp.DistanceMeters,
		DurationSeconds: resp.DurationSeconds,
		Polyline:        resp.Polyline,
	}, nil
}

func toLatLngs(locs []domain.Location) []client.LatLng {
	out := make([]client.LatLng, len(locs))
	for i, l := range locs {
		out[i] = client.LatLng{Lat: l.Lat, Lng: l.Lng}
	}
	return out
}

// EstimateDuration turns a distance in meters into the time it takes at an
// average speed of speedKMH, the approximation used when the routing
// provider cannot be reached. It returns an error for a non-positive speed.
func EstimateDuration(distanceMeters, speedKMH float64) (time.Duration, error) {
	if speedKMH <= 0 {
		return 0, fmt.Errorf("average speed must be positive, got %f", speedKMH)
	}
	hours := (distanceMeters / 1000) / speedKMH
	return time.Duration(hours * float64(time.Hour)), nil
}
