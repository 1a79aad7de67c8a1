package features

import (
	"context"
	"testing"
	"time"

	"bedsight/internal/types"
)

func TestStaticSourceDeterministic(t *testing.T) {
	src := NewStaticSource(WithStaticClock(func() time.Time {
		return time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	}))

	a, err := src.Sample(context.Background(), 44.5, -72.6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := src.Sample(context.Background(), 44.5, -72.6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if *a.SlopeDeg != *b.SlopeDeg || *a.AspectDeg != *b.AspectDeg || *a.CanopyFraction != *b.CanopyFraction {
		t.Error("same coordinate produced different bundles")
	}
}

func TestStaticSourceFullyObserved(t *testing.T) {
	src := NewStaticSource()

	bundle, err := src.Sample(context.Background(), 44.5, -72.6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for name, field := range map[string]*float64{
		"elevation_m":      bundle.ElevationM,
		"slope_deg":        bundle.SlopeDeg,
		"aspect_deg":       bundle.AspectDeg,
		"canopy_fraction":  bundle.CanopyFraction,
		"road_distance_m":  bundle.RoadDistanceM,
		"wind_bearing_deg": bundle.WindBearingDeg,
		"wind_speed_mph":   bundle.WindSpeedMPH,
		"temperature_f":    bundle.TemperatureF,
	} {
		if field == nil {
			t.Errorf("synthetic bundle missing %s", name)
		}
	}
}

func TestStaticSourceRanges(t *testing.T) {
	src := NewStaticSource()

	for _, lat := range []float64{-44.5, 0.001, 39.1, 44.5} {
		for _, lon := range []float64{-120.0, -72.6, 3.3} {
			bundle, err := src.Sample(context.Background(), lat, lon)
			if err != nil {
				t.Fatalf("unexpected error at (%v, %v): %v", lat, lon, err)
			}
			if *bundle.SlopeDeg < 0 || *bundle.SlopeDeg > 90 {
				t.Errorf("slope %v out of range at (%v, %v)", *bundle.SlopeDeg, lat, lon)
			}
			if *bundle.AspectDeg < 0 || *bundle.AspectDeg >= 360 {
				t.Errorf("aspect %v out of range at (%v, %v)", *bundle.AspectDeg, lat, lon)
			}
			if *bundle.CanopyFraction < 0 || *bundle.CanopyFraction > 1 {
				t.Errorf("canopy %v out of range at (%v, %v)", *bundle.CanopyFraction, lat, lon)
			}
			if *bundle.RoadDistanceM < 0 {
				t.Errorf("road distance %v negative at (%v, %v)", *bundle.RoadDistanceM, lat, lon)
			}
		}
	}
}

func TestStaticSourceWindOverride(t *testing.T) {
	src := NewStaticSource(WithStaticWind(types.WindState{DirectionDeg: 90, SpeedMPH: 22}))

	bundle, err := src.Sample(context.Background(), 44.5, -72.6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *bundle.WindBearingDeg != 90 || *bundle.WindSpeedMPH != 22 {
		t.Errorf("wind = (%v, %v), want (90, 22)", *bundle.WindBearingDeg, *bundle.WindSpeedMPH)
	}
}

func TestStaticSourceHealthy(t *testing.T) {
	if err := NewStaticSource().Healthy(context.Background()); err != nil {
		t.Errorf("synthetic source reported unhealthy: %v", err)
	}
}
