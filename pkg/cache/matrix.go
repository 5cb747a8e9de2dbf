package cache

import (
	"context"
	"encoding/json"
	"time"
)

// MatrixCache is a specialized cache for distance/time-matrix lookups
// (origin, destination, time-bucket) -> (distance, duration). It sits in
// front of the routing provider so repeated solver runs over the same
// service area don't re-request the same pair of coordinates.
type MatrixCache struct {
	cache      Cache
	defaultTTL time.Duration
}

// MatrixEntry is a cached distance/time-matrix cell.
type MatrixEntry struct {
	DistanceMeters   float64   `json:"distance_meters"`
	DurationSeconds  float64   `json:"duration_seconds"`
	Approximated     bool      `json:"approximated"`
	ComputedAt       time.Time `json:"computed_at"`
}

// NewMatrixCache creates a cache for distance/time-matrix entries. A
// non-positive defaultTTL falls back to 30 minutes, the width of the
// entry's time bucket. The TTL runs from when the value is set, so a value
// set late in a bucket stays cached past that bucket's end.
func NewMatrixCache(cache Cache, defaultTTL time.Duration) *MatrixCache {
	if defaultTTL <= 0 {
		defaultTTL = 30 * time.Minute
	}
	return &MatrixCache{
		cache:      cache,
		defaultTTL: defaultTTL,
	}
}

// Get fetches a cached matrix entry for the given origin/destination at the
// given time, returning (nil, false, nil) on a clean miss.
func (mc *MatrixCache) Get(ctx context.Context, originLat, originLng, destLat, destLng float64, at time.Time) (*MatrixEntry, bool, error) {
	key := MatrixKey(originLat, originLng, destLat, destLng, at)

	data, err := mc.cache.Get(ctx, key)
	if err != nil {
		if err == ErrKeyNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}

	var entry MatrixEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		_ = mc.cache.Delete(ctx, key) //nolint:errcheck // best effort cleanup of a corrupt entry
		return nil, false, nil
	}

	return &entry, true, nil
}

// Set stores a matrix entry. A non-positive ttl uses the cache's default.
func (mc *MatrixCache) Set(ctx context.Context, originLat, originLng, destLat, destLng float64, at time.Time, entry *MatrixEntry, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = mc.defaultTTL
	}

	key := MatrixKey(originLat, originLng, destLat, destLng, at)
	entry.ComputedAt = time.Now()

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return mc.cache.Set(ctx, key, data, ttl)
}

// InvalidateOrigin drops every cached entry keyed under the given origin
// coordinate, across all destinations and time buckets. Called when a
// stop's location is corrected after being geocoded incorrectly.
func (mc *MatrixCache) InvalidateOrigin(ctx context.Context, lat, lng float64) (int64, error) {
	return mc.cache.DeleteByPattern(ctx, MatrixPatternForOrigin(lat, lng))
}

// InvalidateAll drops every cached matrix entry.
func (mc *MatrixCache) InvalidateAll(ctx context.Context) (int64, error) {
	return mc.cache.DeleteByPattern(ctx, "matrix:*")
}
