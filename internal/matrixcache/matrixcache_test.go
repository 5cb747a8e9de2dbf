package matrixcache

import (
	"context"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/provider"
	"dispatch/pkg/cache"
)

func newTestResolver(routing *provider.FakeRoutingProvider) *Resolver {
	mc := cache.NewMatrixCache(cache.NewMemoryCache(nil), time.Minute)
	return NewResolver(mc, routing, 30, nil)
}

func TestResolver_Get_CachesAfterFirstLookup(t *testing.T) {
	fp := provider.NewFakeRoutingProvider(30)
	r := newTestResolver(fp)
	ctx := context.Background()
	at := time.Now()

	origin := domain.Location{Lat: 25.0, Lng: 121.5}
	dest := domain.Location{Lat: 25.1, Lng: 121.6}

	first, err := r.Get(ctx, origin, dest, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.DistanceMeters <= 0 {
		t.Error("expected a positive distance")
	}

	// Force the provider to fail; a cache hit should still answer.
	fp.FailNext = 10
	second, err := r.Get(ctx, origin, dest, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.DistanceMeters != first.DistanceMeters {
		t.Errorf("expected cached distance to match, got %f vs %f", second.DistanceMeters, first.DistanceMeters)
	}
}

func TestResolver_Get_FallsBackToHaversineOnProviderFailure(t *testing.T) {
	fp := provider.NewFakeRoutingProvider(30)
	fp.FailNext = 1
	r := newTestResolver(fp)

	origin := domain.Location{Lat: 25.0, Lng: 121.5}
	dest := domain.Location{Lat: 25.1, Lng: 121.6}

	entry, err := r.Get(context.Background(), origin, dest, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !entry.Approximated {
		t.Error("expected the fallback entry to be flagged approximate")
	}
}

func TestResolver_GetMany_BuildsFullGrid(t *testing.T) {
	fp := provider.NewFakeRoutingProvider(30)
	r := newTestResolver(fp)

	origins := []domain.Location{{Lat: 25.0, Lng: 121.5}, {Lat: 25.05, Lng: 121.52}}
	dests := []domain.Location{{Lat: 25.1, Lng: 121.6}, {Lat: 25.2, Lng: 121.7}}

	grid, err := r.GetMany(context.Background(), origins, dests, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(grid) != 2 || len(grid[0]) != 2 || len(grid[1]) != 2 {
		t.Fatalf("unexpected grid shape: %+v", grid)
	}
	for i := range grid {
		for j := range grid[i] {
			if grid[i][j].DistanceMeters <= 0 {
				t.Errorf("expected a positive distance at [%d][%d]", i, j)
			}
		}
	}
}

func TestResolver_GetMany_PartialCacheHit(t *testing.T) {
	fp := provider.NewFakeRoutingProvider(30)
	r := newTestResolver(fp)
	at := time.Now()

	a := domain.Location{Lat: 25.0, Lng: 121.5}
	b := domain.Location{Lat: 25.1, Lng: 121.6}
	c := domain.Location{Lat: 25.2, Lng: 121.7}

	// Warm the cache for (a,b) only.
	if _, err := r.Get(context.Background(), a, b, at); err != nil {
		t.Fatalf("warm-up failed: %v", err)
	}

	grid, err := r.GetMany(context.Background(), []domain.Location{a}, []domain.Location{b, c}, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if grid[0][0].DistanceMeters <= 0 || grid[0][1].DistanceMeters <= 0 {
		t.Errorf("expected both cells to resolve: %+v", grid)
	}
}
