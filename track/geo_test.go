package track

import (
	"math"
	"testing"
)

func TestDistanceKm_ZeroDistance(t *testing.T) {
	if d := DistanceKm(51.5, -0.12, 51.5, -0.12); d != 0 {
		t.Errorf("DistanceKm(same point) = %g, want 0", d)
	}
}

func TestDistanceKm_OneDegreeLongitudeAtEquator(t *testing.T) {
	// One degree of longitude at the equator is 6371 * pi / 180 km.
	want := 6371.0 * math.Pi / 180
	got := DistanceKm(0, 0, 0, 1)
	if math.Abs(got-want) > 0.01 {
		t.Errorf("DistanceKm(0,0 -> 0,1) = %g, want %g", got, want)
	}
}

func TestDistanceKm_KnownCityPair(t *testing.T) {
	// London to Paris, roughly 343.5 km by haversine.
	got := DistanceKm(51.5074, -0.1278, 48.8566, 2.3522)
	if math.Abs(got-343.5) > 1.0 {
		t.Errorf("DistanceKm(London -> Paris) = %g, want ~343.5", got)
	}
}

func TestDistanceKm_ShortRange(t *testing.T) {
	// 0.0001 degrees of latitude is about 11 meters; this is the scale the
	// dedup threshold comparisons operate at.
	got := DistanceKm(40.0, -74.0, 40.0001, -74.0)
	if got < 0.010 || got > 0.012 {
		t.Errorf("DistanceKm(0.0001 deg lat) = %g km, want ~0.011", got)
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	a := DistanceKm(10, 20, 30, 40)
	b := DistanceKm(30, 40, 10, 20)
	if math.Abs(a-b) > 1e-9 {
		t.Errorf("DistanceKm not symmetric: %g vs %g", a, b)
	}
}

func TestDistanceKm_NaNPropagates(t *testing.T) {
	if d := DistanceKm(math.NaN(), 0, 0, 0); !math.IsNaN(d) {
		t.Errorf("DistanceKm(NaN, ...) = %g, want NaN", d)
	}
	if d := DistanceKm(0, 0, 0, math.NaN()); !math.IsNaN(d) {
		t.Errorf("DistanceKm(..., NaN) = %g, want NaN", d)
	}
}
