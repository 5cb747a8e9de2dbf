// Package planning coordinates the VRP solver and the route assembler into
// the single operation the async job orchestrator registers as the
// optimize_day job kind: read the day's orders and drivers, solve, and
// persist the result as routes.
package planning

import (
	"context"
	"fmt"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/orchestrator"
	"dispatch/internal/routeassembler"
	"dispatch/internal/vrp"
)

const dateLayout = "2006-01-02"

// DayPlanner runs one operating date's solve-and-assemble cycle.
type DayPlanner struct {
	store     Store
	solver    *vrp.Solver
	assembler *routeassembler.Assembler
}

// NewDayPlanner constructs a DayPlanner.
func NewDayPlanner(store Store, solver *vrp.Solver, assembler *routeassembler.Assembler) *DayPlanner {
	return &DayPlanner{store: store, solver: solver, assembler: assembler}
}

// Handler adapts Run to the orchestrator's Handler signature for
// registration under domain.JobOptimizeDay. targetKey is the operating
// date in YYYY-MM-DD form.
func (p *DayPlanner) Handler() orchestrator.Handler {
	return func(ctx context.Context, targetKey string, input []byte, report orchestrator.ReportFunc) (string, error) {
		return p.Run(ctx, targetKey, report)
	}
}

// Run solves targetDate and assembles the result into persisted routes,
// returning a comma-separated list of the route ids created as the job's
// result handle.
func (p *DayPlanner) Run(ctx context.Context, targetKey string, report orchestrator.ReportFunc) (string, error) {
	targetDate, err := time.Parse(dateLayout, targetKey)
	if err != nil {
		return "", fmt.Errorf("parsing target date %q: %w", targetKey, err)
	}

	drivers, err := p.store.Drivers(ctx)
	if err != nil {
		return "", err
	}
	orders, err := p.store.OrdersForDate(ctx, targetDate)
	if err != nil {
		return "", err
	}
	if report != nil {
		report(0.1, fmt.Sprintf("loaded %d orders across %d drivers", len(orders), len(drivers)))
	}

	customerIDs := make([]string, 0, len(orders))
	seen := map[string]bool{}
	for _, o := range orders {
		if !seen[o.CustomerID] {
			seen[o.CustomerID] = true
			customerIDs = append(customerIDs, o.CustomerID)
		}
	}
	customers, err := p.store.CustomersByID(ctx, customerIDs)
	if err != nil {
		return "", err
	}

	stops := make(map[string]vrp.Stop, len(orders))
	vrpStops := make([]vrp.Stop, 0, len(orders))
	for _, o := range orders {
		window, serviceMinutes := o.Window, o.ServiceMinutes
		if window.CloseMinute == 0 && window.OpenMinute == 0 {
			if c, ok := customers[o.CustomerID]; ok {
				window = c.Window
			}
		}
		if serviceMinutes == 0 {
			if c, ok := customers[o.CustomerID]; ok {
				serviceMinutes = c.ServiceMinutes
			}
		}
		loc := domain.Location{}
		if c, ok := customers[o.CustomerID]; ok {
			loc = c.Location
		}
		stop := vrp.Stop{
			ID:             o.ID,
			Location:       loc,
			Demand:         o.LineItems,
			Window:         window,
			ServiceMinutes: serviceMinutes,
			AtomicGroup:    o.CustomerID,
		}
		stops[stop.ID] = stop
		vrpStops = append(vrpStops, stop)
	}

	vehicles := make([]vrp.Vehicle, 0, len(drivers))
	var depot domain.Location
	for _, d := range drivers {
		vehicles = append(vehicles, vrp.Vehicle{
			ID:                d.ID,
			Capacity:          d.Capacity,
			StartLocation:     d.StartLocation,
			EndLocation:       d.StartLocation,
			ShiftStartMinute:  d.ShiftStart,
			MaxWorkingMinutes: d.ShiftMinutes(),
		})
		depot = d.StartLocation
	}

	result, err := p.solver.Solve(ctx, vrp.Input{
		Stops:     vrpStops,
		Vehicles:  vehicles,
		Depot:     depot,
		Objective: vrp.ObjectiveBalanced,
	})
	if err != nil {
		return "", err
	}
	if report != nil {
		report(0.7, fmt.Sprintf("solved: %d unassigned stops, fallback=%v", len(result.Unassigned), result.Fallback))
	}

	routeIDs, err := p.assembler.Assemble(ctx, routeassembler.Input{
		OperatingDate: targetDate,
		Stops:         stops,
		Result:        result,
	})
	if err != nil {
		return "", err
	}
	if report != nil {
		report(1.0, fmt.Sprintf("assembled %d routes", len(routeIDs)))
	}

	handle := ""
	for i, id := range routeIDs {
		if i > 0 {
			handle += ","
		}
		handle += id
	}
	return handle, nil
}
