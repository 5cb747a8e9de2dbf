package cache

import (
	"context"
	"testing"
	"time"
)

func TestMatrixKey_RoundsCoordinatesAndBucketsTime(t *testing.T) {
	at := time.Date(2026, 1, 1, 10, 12, 0, 0, time.UTC)
	k1 := MatrixKey(25.0479201, 121.517081, 25.033, 121.565, at)
	k2 := MatrixKey(25.0479249, 121.517081, 25.033, 121.565, at.Add(5*time.Minute))

	if k1 != k2 {
		t.Errorf("expected keys within rounding/bucket tolerance to match: %s vs %s", k1, k2)
	}

	k3 := MatrixKey(25.047925, 121.517081, 25.033, 121.565, at.Add(45*time.Minute))
	if k1 == k3 {
		t.Errorf("expected a later time bucket to produce a different key")
	}
}

func TestMatrixCache_SetGet(t *testing.T) {
	cache := NewMemoryCache(&Options{DefaultTTL: time.Minute, MaxEntries: 100})
	defer cache.Close()

	mc := NewMatrixCache(cache, time.Minute)
	ctx := context.Background()
	at := time.Now()

	entry := &MatrixEntry{DistanceMeters: 4200, DurationSeconds: 600}
	if err := mc.Set(ctx, 25.0, 121.5, 25.1, 121.6, at, entry, 0); err != nil {
		t.Fatalf("failed to set: %v", err)
	}

	got, found, err := mc.Get(ctx, 25.0, 121.5, 25.1, 121.6, at)
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if !found {
		t.Fatal("expected cache hit")
	}
	if got.DistanceMeters != 4200 || got.DurationSeconds != 600 {
		t.Errorf("unexpected entry: %+v", got)
	}
	if got.ComputedAt.IsZero() {
		t.Error("expected ComputedAt to be stamped")
	}
}

func TestMatrixCache_GetMiss(t *testing.T) {
	cache := NewMemoryCache(nil)
	defer cache.Close()

	mc := NewMatrixCache(cache, 0)
	_, found, err := mc.Get(context.Background(), 1, 1, 2, 2, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected a miss for an unset key")
	}
}

func TestMatrixCache_InvalidateOrigin(t *testing.T) {
	cache := NewMemoryCache(nil)
	defer cache.Close()

	mc := NewMatrixCache(cache, time.Minute)
	ctx := context.Background()
	at := time.Now()

	if err := mc.Set(ctx, 25.0, 121.5, 25.1, 121.6, at, &MatrixEntry{DistanceMeters: 100}, 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := mc.Set(ctx, 25.0, 121.5, 25.2, 121.7, at, &MatrixEntry{DistanceMeters: 200}, 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	n, err := mc.InvalidateOrigin(ctx, 25.0, 121.5)
	if err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 entries invalidated, got %d", n)
	}

	_, found, _ := mc.Get(ctx, 25.0, 121.5, 25.1, 121.6, at)
	if found {
		t.Error("expected entry to be gone after invalidation")
	}
}
