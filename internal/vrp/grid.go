package vrp

import (
	"context"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/matrixcache"
)

func buildGrid(ctx context.Context, resolver *matrixcache.Resolver, vehicles []Vehicle, welded []Stop, departAt time.Time, maxWaitMinutes int) (*grid, error) {
	index := make(map[domain.Location]int)
	var nodes []domain.Location

	add := func(loc domain.Location) {
		if _, ok := index[loc]; !ok {
			index[loc] = len(nodes)
			nodes = append(nodes, loc)
		}
	}
	for _, v := range vehicles {
		add(v.StartLocation)
		add(v.EndLocation)
	}
	for _, s := range welded {
		add(s.Location)
	}

	entries, err := resolver.GetMany(ctx, nodes, nodes, departAt)
	if err != nil {
		return nil, err
	}

	distance := make([][]float64, len(nodes))
	durationS := make([][]float64, len(nodes))
	for i := range nodes {
		distance[i] = make([]float64, len(nodes))
		durationS[i] = make([]float64, len(nodes))
		for j := range nodes {
			distance[i][j] = entries[i][j].DistanceMeters
			durationS[i][j] = entries[i][j].DurationSeconds
		}
	}

	return &grid{nodes: nodes, index: index, distance: distance, durationS: durationS, maxWaitMinutes: maxWaitMinutes}, nil
}
