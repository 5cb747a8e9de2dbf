package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"
)

// coordPrecision is the number of decimal places coordinates are rounded to
// before being folded into a cache key. Five decimal places is ~1.1m of
// ground resolution, well under GPS noise, so distinct requests for the
// "same" stop collapse onto the same matrix entry.
const coordPrecision = 5

// timeBucket is the width of the time-of-day window a matrix entry is keyed
// under. Travel times are bucketed rather than keyed by exact timestamp so
// that a cache built during one dispatch run stays useful for the next.
const timeBucket = 30 * time.Minute

// RoundCoord rounds a coordinate to the cache's key precision.
func RoundCoord(v float64) float64 {
	scale := math.Pow(10, coordPrecision)
	return math.Round(v*scale) / scale
}

// BucketTime folds a timestamp down to the start of its time bucket.
func BucketTime(t time.Time) time.Time {
	t = t.UTC()
	bucketSeconds := int64(timeBucket.Seconds())
	epoch := t.Unix()
	bucketed := (epoch / bucketSeconds) * bucketSeconds
	return time.Unix(bucketed, 0).UTC()
}

// MatrixKey builds the cache key for a single origin/destination/time-bucket
// distance-and-duration entry.
func MatrixKey(originLat, originLng, destLat, destLng float64, at time.Time) string {
	bucket := BucketTime(at)
	return fmt.Sprintf("matrix:%.5f,%.5f:%.5f,%.5f:%d",
		RoundCoord(originLat), RoundCoord(originLng),
		RoundCoord(destLat), RoundCoord(destLng),
		bucket.Unix())
}

// MatrixPatternForOrigin builds a DeleteByPattern glob matching every cached
// entry whose origin is the given coordinate, regardless of destination or
// time bucket. Used to invalidate a stop's outbound entries when its
// location changes.
func MatrixPatternForOrigin(lat, lng float64) string {
	return fmt.Sprintf("matrix:%.5f,%.5f:*", RoundCoord(lat), RoundCoord(lng))
}

// QuickHash is a general-purpose full-length SHA-256 hash, used where
// collision resistance matters more than key brevity.
func QuickHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ShortHash truncates a SHA-256 hash to 16 hex characters for use inside
// composite cache keys where brevity matters more than full collision
// resistance.
func ShortHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}
