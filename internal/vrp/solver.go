package vrp

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/matrixcache"
	"dispatch/pkg/apperror"
)

// Solver plans stop-to-vehicle assignments for one operating date: a
// cheapest-arc insertion construction pass followed by a guided-local-search
// improvement pass, bounded by a wall-clock budget and a concurrency limit.
// The pool/gate shell is grounded on
// services/solver-svc/internal/service/solver.go and
// services/solver-svc/internal/algorithms/solver.go's SolverPool.
type Solver struct {
	cfg      Config
	pool     *pool
	gate     *shutdownGate
	resolver *matrixcache.Resolver
	log      *slog.Logger
}

// NewSolver constructs a solver over the given config and matrix resolver.
func NewSolver(cfg Config, resolver *matrixcache.Resolver, log *slog.Logger) *Solver {
	if log == nil {
		log = slog.Default()
	}
	return &Solver{
		cfg:      cfg,
		pool:     newPool(cfg.MaxConcurrentSolves),
		gate:     newShutdownGate(),
		resolver: resolver,
		log:      log,
	}
}

// Shutdown stops admitting new solves and waits for in-flight ones to
// finish, or for ctx to expire first.
func (s *Solver) Shutdown(ctx context.Context) error {
	return s.gate.Shutdown(ctx)
}

// InFlight reports the number of solves currently running.
func (s *Solver) InFlight() int {
	return s.gate.InFlight()
}

// Solve plans routes for in.Stops across in.Vehicles within the configured
// budget. It never errors on infeasibility: unplaceable stops are reported
// in Result.Unassigned and Result.Fallback is set instead.
func (s *Solver) Solve(ctx context.Context, in Input) (*Result, error) {
	release, err := s.gate.track()
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.pool.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.pool.Release()

	budget := s.cfg.budgetFor(in.BudgetMS)
	deadline := time.Now().Add(budget)
	solveCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	welded, members := weld(in.Stops)
	if len(welded) == 0 {
		return &Result{
			Assignments:          map[string][]StopAssignment{},
			Method:                domain.MethodCheapestArcInsertion,
			TotalDistanceMeters:   map[string]float64{},
			TotalDurationSeconds:  map[string]float64{},
		}, nil
	}

	g, err := buildGrid(solveCtx, s.resolver, in.Vehicles, welded, time.Now(), s.cfg.MaxWaitMinutes)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeNoMatrix, "could not build a distance/time matrix for this solve")
	}

	rng := rand.New(rand.NewSource(in.Seed))

	routes, unassigned := cheapestArcInsertion(g, in.Vehicles, welded, rng)
	fallback := len(unassigned) > 0

	improved := s.guidedLocalSearch(solveCtx, g, routes, welded, rng)

	result := &Result{
		Assignments:          map[string][]StopAssignment{},
		Unassigned:           unassigned,
		Fallback:             fallback,
		Improved:             improved,
		Method:                domain.MethodCheapestArcInsertion,
		TotalDistanceMeters:   map[string]float64{},
		TotalDurationSeconds:  map[string]float64{},
	}
	if improved {
		result.Method = domain.MethodGuidedLocalSearch
	}

	for _, r := range routes {
		var assignments []StopAssignment
		for i, si := range r.stops {
			assignments = append(assignments, unweld(members, welded[si].ID, r.arrival[i])...)
		}
		result.Assignments[r.vehicle.ID] = assignments
		result.TotalDistanceMeters[r.vehicle.ID] = r.distance
		result.TotalDurationSeconds[r.vehicle.ID] = r.durationS
	}

	return result, nil
}

// cheapestArcInsertion builds a first feasible solution: each stop is
// inserted at the position and vehicle that adds the least distance,
// processed in a deterministic (id-sorted) order so repeated solves over
// identical input produce identical routes.
func cheapestArcInsertion(g *grid, vehicles []Vehicle, welded []Stop, rng *rand.Rand) ([]*vehicleRoute, []UnassignedStop) {
	routes := make([]*vehicleRoute, len(vehicles))
	for i, v := range vehicles {
		routes[i] = newVehicleRoute(v)
		routes[i].simulate(g, welded)
	}

	order := make([]int, len(welded))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return welded[order[a]].ID < welded[order[b]].ID })

	var unassigned []UnassignedStop
	for _, si := range order {
		bestRouteIdx, bestPos, bestDelta := -1, -1, 0.0
		anyCapacityFit := false

		for ri, r := range routes {
			if !r.vehicle.Capacity.IsZero() && !welded[si].Demand.FitsWithin(r.vehicle.Capacity) {
				continue
			}
			anyCapacityFit = true
			for pos := 0; pos <= len(r.stops); pos++ {
				cand := r.tryInsertAt(g, welded, si, pos)
				if cand == nil {
					continue
				}
				delta := cand.distance - r.distance
				if bestRouteIdx == -1 || delta < bestDelta {
					bestRouteIdx, bestPos, bestDelta = ri, pos, delta
				}
			}
		}

		if bestRouteIdx == -1 {
			reason := ReasonWindowInfeasible
			if !anyCapacityFit {
				reason = ReasonCapacityInfeasible
			}
			unassigned = append(unassigned, UnassignedStop{StopID: welded[si].ID, Reason: reason})
			continue
		}

		routes[bestRouteIdx] = routes[bestRouteIdx].tryInsertAt(g, welded, si, bestPos)
	}

	return routes, unassigned
}

// guidedLocalSearch applies single-stop relocation moves between routes
// until the budget deadline, a 5s stall window with no improving
// move, or no improving move remains at all — whichever comes first. A
// checkpoint tick lets cancellation land promptly without per-move overhead.
func (s *Solver) guidedLocalSearch(ctx context.Context, g *grid, routes []*vehicleRoute, welded []Stop, rng *rand.Rand) bool {
	if ctx.Err() != nil {
		return false
	}

	improvedAny := false
	lastImprovement := time.Now()
	ticker := time.NewTicker(s.cfg.CheckpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return improvedAny
		case <-ticker.C:
			if time.Since(lastImprovement) > s.cfg.StallWindow {
				return improvedAny
			}
		default:
		}

		if time.Since(lastImprovement) > s.cfg.StallWindow {
			return improvedAny
		}

		moved := relocateOneStop(g, routes, welded)
		if moved {
			improvedAny = true
			lastImprovement = time.Now()
			continue
		}

		if ctx.Err() != nil {
			return improvedAny
		}
		return improvedAny
	}
}

// relocateOneStop scans every (source, destination) route pair for a single
// stop whose relocation strictly reduces total distance across the two
// routes, applying the first improving move found. Returns false once a
// full pass finds nothing to improve.
func relocateOneStop(g *grid, routes []*vehicleRoute, welded []Stop) bool {
	for srcIdx, src := range routes {
		for pos, si := range src.stops {
			withoutSrc := src.clone()
			withoutSrc.stops = append(append([]int(nil), src.stops[:pos]...), src.stops[pos+1:]...)
			if !withoutSrc.simulate(g, welded) {
				continue
			}
			baseDelta := withoutSrc.distance - src.distance

			for dstIdx, dst := range routes {
				if dstIdx == srcIdx {
					continue
				}
				for dpos := 0; dpos <= len(dst.stops); dpos++ {
					cand := dst.tryInsertAt(g, welded, si, dpos)
					if cand == nil {
						continue
					}
					totalDelta := baseDelta + (cand.distance - dst.distance)
					if totalDelta < -1e-6 {
						routes[srcIdx] = withoutSrc
						routes[dstIdx] = cand
						return true
					}
				}
			}
		}
	}
	return false
}
