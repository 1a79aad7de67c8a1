package search

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"

	"bedsight/internal/config"
	"bedsight/internal/geo"
	"bedsight/internal/types"
)

var testOrigin = types.Location{Lat: 44.5, Lon: -72.6}

// goodBundle returns a fully observed bundle that passes the default base
// gates, with the given aspect.
func goodBundle(lat, lon, aspect float64) *types.FeatureBundle {
	return &types.FeatureBundle{
		Location:       types.Location{Lat: lat, Lon: lon},
		SlopeDeg:       types.Float64Ptr(12),
		AspectDeg:      types.Float64Ptr(aspect),
		CanopyFraction: types.Float64Ptr(0.8),
		RoadDistanceM:  types.Float64Ptr(600),
		WindBearingDeg: types.Float64Ptr(0),
		WindSpeedMPH:   types.Float64Ptr(5),
		TemperatureF:   types.Float64Ptr(40),
	}
}

// aspectByDistance builds a BundleFunc where aspect depends on the distance
// from the test origin: east-facing (gated out) within nearAspectUpTo meters,
// south-facing beyond.
func aspectByDistance(nearAspectUpTo float64) BundleFunc {
	return func(_ context.Context, lat, lon float64) (*types.FeatureBundle, error) {
		if geo.HaversineM(testOrigin.Lat, testOrigin.Lon, lat, lon) < nearAspectUpTo {
			return goodBundle(lat, lon, 70), nil
		}
		return goodBundle(lat, lon, 180), nil
	}
}

func TestFindAcceptableSiteNearbyAlternative(t *testing.T) {
	// The origin and its first ring face east; everything from 140 m out
	// faces south. The search must return a point on the 150 m ring, not
	// anything farther.
	p := config.DefaultProfile()

	candidate, err := FindAcceptableSite(context.Background(), testOrigin, aspectByDistance(140), p, 300, slog.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if candidate == nil {
		t.Fatal("expected a candidate, got nil")
	}
	if candidate.Result.Disqualified {
		t.Fatal("search returned a disqualified candidate")
	}
	if candidate.RelaxationTier != 0 {
		t.Errorf("tier = %d, want 0 (south-facing passes base gates)", candidate.RelaxationTier)
	}
	if math.Abs(candidate.DistanceFromOriginM-150) > 1.0 {
		t.Errorf("distance = %.1f m, want ~150", candidate.DistanceFromOriginM)
	}
}

func TestFindAcceptableSiteOriginUnderRelaxedTier(t *testing.T) {
	// Aspect 125 fails the base sector [135, 225] but passes tier 1
	// [120, 240]. The origin itself must be returned as a radius-zero
	// candidate before any spatial probing.
	p := config.DefaultProfile()
	bundleFn := func(_ context.Context, lat, lon float64) (*types.FeatureBundle, error) {
		return goodBundle(lat, lon, 125), nil
	}

	candidate, err := FindAcceptableSite(context.Background(), testOrigin, bundleFn, p, 0, slog.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if candidate == nil {
		t.Fatal("expected a candidate, got nil")
	}
	if candidate.RelaxationTier != 1 {
		t.Errorf("tier = %d, want 1", candidate.RelaxationTier)
	}
	if candidate.DistanceFromOriginM != 0 {
		t.Errorf("distance = %.1f m, want 0", candidate.DistanceFromOriginM)
	}
}

func TestFindAcceptableSiteExhaustion(t *testing.T) {
	// Everything faces east: no tier can accept it (the envelope caps the
	// sector at SE-SW). Exhaustion is a nil result, not an error.
	p := config.DefaultProfile()
	bundleFn := func(_ context.Context, lat, lon float64) (*types.FeatureBundle, error) {
		return goodBundle(lat, lon, 70), nil
	}

	candidate, err := FindAcceptableSite(context.Background(), testOrigin, bundleFn, p, 300, slog.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if candidate != nil {
		t.Fatalf("expected nil candidate, got tier %d at %.0f m", candidate.RelaxationTier, candidate.DistanceFromOriginM)
	}
}

func TestFindAcceptableSiteSkipsFailedProbes(t *testing.T) {
	// Probes within 200 m fail at the provider. The search must skip them
	// and still find the acceptable point farther out.
	p := config.DefaultProfile()
	providerErr := errors.New("terrain tile unavailable")
	bundleFn := func(_ context.Context, lat, lon float64) (*types.FeatureBundle, error) {
		if geo.HaversineM(testOrigin.Lat, testOrigin.Lon, lat, lon) < 200 {
			return nil, providerErr
		}
		return goodBundle(lat, lon, 180), nil
	}

	candidate, err := FindAcceptableSite(context.Background(), testOrigin, bundleFn, p, 400, slog.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if candidate == nil {
		t.Fatal("expected a candidate beyond the failing zone, got nil")
	}
	if candidate.DistanceFromOriginM < 200 {
		t.Errorf("candidate at %.0f m is inside the failing zone", candidate.DistanceFromOriginM)
	}
}

func TestFindAcceptableSiteRadiusCap(t *testing.T) {
	// The acceptable terrain starts at 500 m but the caller caps the search
	// at 300 m; the search must exhaust without crossing the cap.
	p := config.DefaultProfile()
	var maxProbed float64
	bundleFn := func(_ context.Context, lat, lon float64) (*types.FeatureBundle, error) {
		d := geo.HaversineM(testOrigin.Lat, testOrigin.Lon, lat, lon)
		if d > maxProbed {
			maxProbed = d
		}
		if d < 500 {
			return goodBundle(lat, lon, 70), nil
		}
		return goodBundle(lat, lon, 180), nil
	}

	candidate, err := FindAcceptableSite(context.Background(), testOrigin, bundleFn, p, 300, slog.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if candidate != nil {
		t.Fatalf("expected exhaustion under the 300 m cap, got candidate at %.0f m", candidate.DistanceFromOriginM)
	}
	if maxProbed > 301 {
		t.Errorf("search probed %.0f m, beyond the 300 m cap", maxProbed)
	}
}

func TestFindAcceptableSiteContextCancel(t *testing.T) {
	p := config.DefaultProfile()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bundleFn := func(_ context.Context, lat, lon float64) (*types.FeatureBundle, error) {
		return goodBundle(lat, lon, 70), nil
	}

	_, err := FindAcceptableSite(ctx, testOrigin, bundleFn, p, 300, slog.Default())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
