package geo

import "testing"

func TestKmToMeters(t *testing.T) {
	if got := KmToMeters(1.5); got != 1500 {
		t.Fatalf("KmToMeters(1.5) = %v, want 1500", got)
	}
}

func TestHaversineKm_ZeroDistance(t *testing.T) {
	d := HaversineKm(10, 20, 10, 20)
	if d < 0 || d > 1e-9 {
		t.Fatalf("zero distance expected ~0, got %v", d)
	}
}

func TestHaversineKm_KnownDistance(t *testing.T) {
	// One degree of latitude along a meridian is ~111.2 km.
	d := HaversineKm(0, 0, 1, 0)
	if d < 111 || d > 112 {
		t.Fatalf("HaversineKm(0,0,1,0) = %v, want ~111.2", d)
	}
}

func TestIsWithinRadius(t *testing.T) {
	// ~0.11 m apart, well under the arrival radius.
	if !IsWithinRadius(0, 0, 0, 0.000001, ArrivalRadiusMeters) {
		t.Fatalf("expected points to be within radius")
	}
	// ~1.1 km apart, well outside.
	if IsWithinRadius(0, 0, 0.01, 0, ArrivalRadiusMeters) {
		t.Fatalf("expected points to be outside radius")
	}
}

func TestInterpolate(t *testing.T) {
	lat, lng := Interpolate(0, 0, 10, 20, 0.5)
	if lat != 5 || lng != 10 {
		t.Fatalf("Interpolate midpoint = (%v,%v), want (5,10)", lat, lng)
	}
	lat, lng = Interpolate(0, 0, 10, 20, 1.5)
	if lat != 10 || lng != 20 {
		t.Fatalf("Interpolate clamps above 1, got (%v,%v)", lat, lng)
	}
	lat, lng = Interpolate(0, 0, 10, 20, -1)
	if lat != 0 || lng != 0 {
		t.Fatalf("Interpolate clamps below 0, got (%v,%v)", lat, lng)
	}
}
