package geo

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestNormalizeBearing(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{360, 0},
		{361, 1},
		{-1, 359},
		{-540, 180},
		{725, 5},
	}
	for _, tc := range cases {
		if got := NormalizeBearing(tc.in); !almostEqual(got, tc.want, 1e-9) {
			t.Errorf("NormalizeBearing(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestAngularDistance(t *testing.T) {
	cases := []struct {
		a, b float64
		want float64
	}{
		{0, 0, 0},
		{0, 180, 180},
		{350, 10, 20},
		{10, 350, 20},
		{90, 270, 180},
		{180, 70, 110},
		{-10, 10, 20},
	}
	for _, tc := range cases {
		if got := AngularDistance(tc.a, tc.b); !almostEqual(got, tc.want, 1e-9) {
			t.Errorf("AngularDistance(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestWithinSector(t *testing.T) {
	cases := []struct {
		bearing, from, to float64
		want              bool
	}{
		{180, 135, 225, true},
		{135, 135, 225, true},
		{225, 135, 225, true},
		{134.9, 135, 225, false},
		{70, 135, 225, false},
		// Wrap through north.
		{350, 315, 45, true},
		{10, 315, 45, true},
		{180, 315, 45, false},
		{0, 315, 45, true},
	}
	for _, tc := range cases {
		if got := WithinSector(tc.bearing, tc.from, tc.to); got != tc.want {
			t.Errorf("WithinSector(%v, %v, %v) = %v, want %v", tc.bearing, tc.from, tc.to, got, tc.want)
		}
	}
}

func TestSectorWidth(t *testing.T) {
	cases := []struct {
		from, to float64
		want     float64
	}{
		{135, 225, 90},
		{315, 45, 90},
		{0, 360, 0},
		{112.5, 247.5, 135},
	}
	for _, tc := range cases {
		if got := SectorWidth(tc.from, tc.to); !almostEqual(got, tc.want, 1e-9) {
			t.Errorf("SectorWidth(%v, %v) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestHaversineAndDestinationRoundTrip(t *testing.T) {
	lat, lon := 44.5, -72.6

	for _, bearing := range []float64{0, 45, 90, 135, 200, 315} {
		for _, dist := range []float64{75, 300, 800} {
			dLat, dLon := DestinationPoint(lat, lon, bearing, dist)
			got := HaversineM(lat, lon, dLat, dLon)
			if !almostEqual(got, dist, 0.5) {
				t.Errorf("bearing %v dist %v: haversine back %.2f m", bearing, dist, got)
			}
		}
	}
}

func TestDestinationPointDirections(t *testing.T) {
	lat, lon := 44.5, -72.6

	north, _ := DestinationPoint(lat, lon, 0, 500)
	if north <= lat {
		t.Errorf("bearing 0 should increase latitude: %v -> %v", lat, north)
	}
	_, east := DestinationPoint(lat, lon, 90, 500)
	if east <= lon {
		t.Errorf("bearing 90 should increase longitude: %v -> %v", lon, east)
	}
}

func TestCircularMean(t *testing.T) {
	t.Run("wraps through north", func(t *testing.T) {
		mean, mag := CircularMean([]float64{350, 10}, []float64{1, 1})
		if !almostEqual(mean, 0, 1e-6) {
			t.Errorf("mean = %v, want 0", mean)
		}
		if mag <= 0 {
			t.Errorf("magnitude = %v, want > 0", mag)
		}
	})

	t.Run("weights dominate", func(t *testing.T) {
		mean, _ := CircularMean([]float64{0, 90}, []float64{0.99, 0.01})
		if mean > 5 && mean < 355 {
			t.Errorf("mean = %v, want near 0", mean)
		}
	})

	t.Run("opposed bearings cancel", func(t *testing.T) {
		_, mag := CircularMean([]float64{0, 180}, []float64{0.5, 0.5})
		if mag > 1e-9 {
			t.Errorf("magnitude = %v, want ~0", mag)
		}
	})

	t.Run("simple average", func(t *testing.T) {
		mean, _ := CircularMean([]float64{80, 100}, []float64{1, 1})
		if !almostEqual(mean, 90, 1e-6) {
			t.Errorf("mean = %v, want 90", mean)
		}
	})
}
