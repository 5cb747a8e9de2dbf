package domain

import "testing"

func TestHaversineMeters_SamePointIsZero(t *testing.T) {
	p := Location{Lat: 25.048, Lng: 121.532}
	if d := HaversineMeters(p, p); d != 0 {
		t.Errorf("expected 0 distance for identical points, got %f", d)
	}
}

func TestHaversineMeters_KnownDistance(t *testing.T) {
	// Roughly 1 degree of latitude is ~111km.
	a := Location{Lat: 25.0, Lng: 121.5}
	b := Location{Lat: 26.0, Lng: 121.5}

	d := HaversineMeters(a, b)
	if d < 110000 || d > 112000 {
		t.Errorf("expected ~111km, got %fm", d)
	}
}
