// Package search implements the adaptive fallback search: when the origin
// point fails the scorer's hard gates, it probes an expanding ring pattern
// around the origin under a ladder of progressively relaxed gate sets until
// a point passes, or the radius budget is exhausted.
//
// Probe order is nearest radius first, then relaxation tier, then compass
// bearing. The origin itself participates as a radius-zero probe for the
// relaxed tiers (tier 0 already rejected it, or the search would not have
// been invoked). Tier definitions are validated at configuration load: every
// tier's gate range is a strict subset of the biologically plausible
// envelope, so an acceptance under any tier is still a domain-valid site.
//
// Exhausting every tier and probe is not an error; it is a valid "no suitable
// site nearby" outcome, returned as nil.
package search

import (
	"context"
	"log/slog"

	"bedsight/internal/config"
	"bedsight/internal/geo"
	"bedsight/internal/suitability"
	"bedsight/internal/types"
)

// BundleFunc supplies the feature bundle for a probe point. The function is
// the search's only boundary with I/O; the scoring itself never blocks.
type BundleFunc func(ctx context.Context, lat, lon float64) (*types.FeatureBundle, error)

// FindAcceptableSite probes outward from origin for a point that passes some
// relaxation tier's gates. maxRadiusM caps the probe distance; values <= 0
// fall back to the profile's configured maximum. Returns nil when no probe
// within the radius is acceptable.
//
// A provider failure on an individual probe point skips that probe; the
// search degrades rather than aborts.
func FindAcceptableSite(
	ctx context.Context,
	origin types.Location,
	bundleFn BundleFunc,
	profile *config.Profile,
	maxRadiusM float64,
	logger *slog.Logger,
) (*types.SearchCandidate, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if maxRadiusM <= 0 || maxRadiusM > profile.Search.MaxRadiusM {
		maxRadiusM = profile.Search.MaxRadiusM
	}

	// Radius zero: retry the origin under each relaxed tier before moving
	// spatially. Tier 0 is skipped; the caller only invokes the search after
	// a base-gate disqualification.
	for tier := 1; tier < profile.TierCount(); tier++ {
		if candidate := probe(ctx, origin, origin, tier, bundleFn, profile, logger); candidate != nil {
			return candidate, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	step := profile.Search.RingStepM
	bearingStep := 360.0 / float64(profile.Search.RingBearings)

	for radius := step; radius <= maxRadiusM; radius += step {
		for tier := 0; tier < profile.TierCount(); tier++ {
			for i := 0; i < profile.Search.RingBearings; i++ {
				bearing := float64(i) * bearingStep
				lat, lon := geo.DestinationPoint(origin.Lat, origin.Lon, bearing, radius)
				point := types.Location{Lat: lat, Lon: lon}

				if candidate := probe(ctx, origin, point, tier, bundleFn, profile, logger); candidate != nil {
					return candidate, nil
				}
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
		}
	}

	// Exhausted search: a valid "no suitable site nearby" result.
	return nil, nil
}

// probe samples and scores a single point under one tier's gates. Returns the
// accepted candidate, or nil if the point is disqualified or unsampleable.
func probe(
	ctx context.Context,
	origin, point types.Location,
	tier int,
	bundleFn BundleFunc,
	profile *config.Profile,
	logger *slog.Logger,
) *types.SearchCandidate {
	bundle, err := bundleFn(ctx, point.Lat, point.Lon)
	if err != nil {
		logger.WarnContext(ctx, "probe point unsampleable",
			"lat", point.Lat,
			"lon", point.Lon,
			"tier", tier,
			"error", err,
		)
		return nil
	}

	result := suitability.ScoreWithGates(bundle, profile, profile.GatesForTier(tier))
	if result.Disqualified {
		return nil
	}

	return &types.SearchCandidate{
		Location:            point,
		DistanceFromOriginM: geo.HaversineM(origin.Lat, origin.Lon, point.Lat, point.Lon),
		RelaxationTier:      tier,
		Result:              result,
	}
}
