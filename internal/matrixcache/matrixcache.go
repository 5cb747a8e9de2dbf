// Package matrixcache resolves distance/time-matrix lookups for the VRP
// solver and route assembler, backed by pkg/cache.MatrixCache with a
// haversine fallback when the routing provider is unavailable.
package matrixcache

import (
	"context"
	"log/slog"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/provider"
	"dispatch/pkg/cache"
)

// Entry is one resolved distance/duration lookup, flagged when it came
// from the haversine fallback rather than the routing provider.
type Entry struct {
	DistanceMeters  float64
	DurationSeconds float64
	Approximated    bool
}

// Resolver answers distance/time lookups for the VRP solver, checking the
// cache first, then the routing provider, then falling back to a
// haversine estimate if the provider is unavailable.
type Resolver struct {
	cache    *cache.MatrixCache
	routing  provider.RoutingProvider
	speedKMH float64
	log      *slog.Logger
}

// NewResolver creates a matrix resolver over the given cache and routing
// provider. speedKMH is the average-speed factor used for the haversine
// fallback (spec default 30 km/h).
func NewResolver(c *cache.MatrixCache, routing provider.RoutingProvider, speedKMH float64, log *slog.Logger) *Resolver {
	if speedKMH <= 0 {
		speedKMH = 30
	}
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{cache: c, routing: routing, speedKMH: speedKMH, log: log}
}

// Get resolves a single (origin, destination) pair at the given departure
// time. The cache lookup is pure and never fails; a provider error is
// swallowed in favor of the haversine fallback, flagged Approximated.
func (r *Resolver) Get(ctx context.Context, origin, destination domain.Location, departAt time.Time) (Entry, error) {
	if cached, found, err := r.cache.Get(ctx, origin.Lat, origin.Lng, destination.Lat, destination.Lng, departAt); err == nil && found {
		return Entry{
			DistanceMeters:  cached.DistanceMeters,
			DurationSeconds: cached.DurationSeconds,
			Approximated:    cached.Approximated,
		}, nil
	}

	grid, err := r.routing.Matrix(ctx, []domain.Location{origin}, []domain.Location{destination}, departAt)
	if err == nil && len(grid) == 1 && len(grid[0]) == 1 {
		cell := grid[0][0]
		entry := Entry{DistanceMeters: cell.DistanceMeters, DurationSeconds: cell.DurationSeconds, Approximated: cell.Approximated}
		r.store(ctx, origin, destination, departAt, entry)
		return entry, nil
	}

	if err != nil {
		r.log.Warn("routing provider matrix lookup failed, falling back to haversine", "error", err)
	}

	entry := r.haversineEstimate(origin, destination)
	r.store(ctx, origin, destination, departAt, entry)
	return entry, nil
}

// GetMany resolves every (origin, destination) pair in a single batch,
// minimizing round trips to the routing provider when building a solver
// matrix. Pairs already cached are served without a provider call.
func (r *Resolver) GetMany(ctx context.Context, origins, destinations []domain.Location, departAt time.Time) ([][]Entry, error) {
	grid := make([][]Entry, len(origins))
	for i := range grid {
		grid[i] = make([]Entry, len(destinations))
	}

	var missingOrigins, missingDests []int
	missIndex := make(map[[2]int]bool)
	for i, o := range origins {
		for j, d := range destinations {
			if cached, found, err := r.cache.Get(ctx, o.Lat, o.Lng, d.Lat, d.Lng, departAt); err == nil && found {
				grid[i][j] = Entry{DistanceMeters: cached.DistanceMeters, DurationSeconds: cached.DurationSeconds, Approximated: cached.Approximated}
				continue
			}
			missIndex[[2]int{i, j}] = true
		}
	}
	if len(missIndex) == 0 {
		return grid, nil
	}

	// Build the reduced set of origins/destinations that still need a
	// provider call, preserving the original indices for write-back.
	originSeen := make(map[int]bool)
	destSeen := make(map[int]bool)
	for k := range missIndex {
		originSeen[k[0]] = true
		destSeen[k[1]] = true
	}
	for i := range origins {
		if originSeen[i] {
			missingOrigins = append(missingOrigins, i)
		}
	}
	for j := range destinations {
		if destSeen[j] {
			missingDests = append(missingDests, j)
		}
	}

	reqOrigins := make([]domain.Location, len(missingOrigins))
	for i, idx := range missingOrigins {
		reqOrigins[i] = origins[idx]
	}
	reqDests := make([]domain.Location, len(missingDests))
	for i, idx := range missingDests {
		reqDests[i] = destinations[idx]
	}

	providerGrid, err := r.routing.Matrix(ctx, reqOrigins, reqDests, departAt)
	useProvider := err == nil && len(providerGrid) == len(reqOrigins)
	if err != nil {
		r.log.Warn("routing provider matrix batch failed, falling back to haversine", "error", err)
	}

	for ri, i := range missingOrigins {
		for rj, j := range missingDests {
			if !missIndex[[2]int{i, j}] {
				continue
			}
			var entry Entry
			if useProvider && len(providerGrid[ri]) == len(reqDests) {
				cell := providerGrid[ri][rj]
				entry = Entry{DistanceMeters: cell.DistanceMeters, DurationSeconds: cell.DurationSeconds, Approximated: cell.Approximated}
			} else {
				entry = r.haversineEstimate(origins[i], destinations[j])
			}
			grid[i][j] = entry
			r.store(ctx, origins[i], destinations[j], departAt, entry)
		}
	}

	return grid, nil
}

func (r *Resolver) haversineEstimate(origin, destination domain.Location) Entry {
	dist := domain.HaversineMeters(origin, destination)
	dur, _ := provider.EstimateDuration(dist, r.speedKMH)
	return Entry{DistanceMeters: dist, DurationSeconds: dur.Seconds(), Approximated: true}
}

func (r *Resolver) store(ctx context.Context, origin, destination domain.Location, departAt time.Time, entry Entry) {
	_ = r.cache.Set(ctx, origin.Lat, origin.Lng, destination.Lat, destination.Lng, departAt, &cache.MatrixEntry{
		DistanceMeters:  entry.DistanceMeters,
		DurationSeconds: entry.DurationSeconds,
		Approximated:    entry.Approximated,
	}, 0)
}
