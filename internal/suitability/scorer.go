// Package suitability implements the multi-criteria bedding-site scorer.
//
// Scoring is a pure function of a feature bundle and a criteria profile. Each
// criterion maps its raw value through an optimal-band normalization curve,
// multiplies by its weight, and the contributions sum to a 0-100 composite.
// Hard gates (aspect sector, slope cutoff, canopy floor, road-distance floor)
// are pass/fail checks independent of weighting: a gated value disqualifies
// the point via the result, never via an error.
//
// A criterion whose raw value is unavailable scores the profile's conservative
// degraded default and is flagged so the confidence calibrator can discount it.
package suitability

import (
	"fmt"

	"bedsight/internal/config"
	"bedsight/internal/geo"
	"bedsight/internal/types"
)

// Score rates a candidate point against the profile's base gates.
func Score(bundle *types.FeatureBundle, profile *config.Profile) types.SuitabilityResult {
	return ScoreWithGates(bundle, profile, profile.Gates)
}

// ScoreWithGates rates a candidate point against an explicit gate set. The
// fallback search uses this to re-score probe points under each relaxation
// tier's gates while keeping the curves and weights fixed.
func ScoreWithGates(bundle *types.FeatureBundle, profile *config.Profile, gates config.GateSet) types.SuitabilityResult {
	result := types.SuitabilityResult{
		Location: bundle.Location,
		Criteria: make([]types.CriterionScore, 0, len(types.AllCriteria)),
	}

	// Hard gates first. The breakdown is still computed below for diagnostics,
	// but a gated point never surfaces as accepted.
	if reason := checkGates(bundle, gates); reason != "" {
		result.Disqualified = true
		result.DisqualificationReason = reason
	}

	var composite float64
	for _, name := range types.AllCriteria {
		cs := scoreCriterion(name, bundle, profile)
		composite += cs.Contribution
		result.Criteria = append(result.Criteria, cs)
	}
	result.CompositeScore = composite * 100.0

	if !result.Disqualified && result.CompositeScore < profile.Scoring.DisqualifyBelow {
		result.Disqualified = true
		result.DisqualificationReason = fmt.Sprintf(
			"composite score %.1f below acceptance floor %.1f",
			result.CompositeScore, profile.Scoring.DisqualifyBelow)
	}

	return result
}

// checkGates returns a human-readable reason for the first gate the bundle
// fails, or "" when every gate passes. Gates apply only to available values;
// unavailable features route through the degraded-default path instead.
func checkGates(b *types.FeatureBundle, g config.GateSet) string {
	if b.AspectDeg != nil && !geo.WithinSector(*b.AspectDeg, g.AspectSectorFrom, g.AspectSectorTo) {
		return fmt.Sprintf("aspect %.1f outside acceptable sector [%.1f, %.1f]",
			*b.AspectDeg, g.AspectSectorFrom, g.AspectSectorTo)
	}
	if b.SlopeDeg != nil && *b.SlopeDeg > g.SlopeMaxDeg {
		return fmt.Sprintf("slope %.1f exceeds cutoff %.1f", *b.SlopeDeg, g.SlopeMaxDeg)
	}
	if b.CanopyFraction != nil && *b.CanopyFraction < g.CanopyMin {
		return fmt.Sprintf("canopy %.2f below minimum cover %.2f", *b.CanopyFraction, g.CanopyMin)
	}
	if b.RoadDistanceM != nil && *b.RoadDistanceM < g.RoadDistanceMinM {
		return fmt.Sprintf("road distance %.0fm below minimum %.0fm", *b.RoadDistanceM, g.RoadDistanceMinM)
	}
	return ""
}

// scoreCriterion produces the breakdown entry for one scoring dimension.
func scoreCriterion(name types.CriterionName, b *types.FeatureBundle, p *config.Profile) types.CriterionScore {
	weight := p.Weights[name]
	raw, normalized, ok := normalize(name, b, p)

	cs := types.CriterionScore{
		Name:   name,
		Weight: weight,
	}
	if !ok {
		cs.NormalizedScore = p.Scoring.DegradedDefault
		cs.Degraded = true
	} else {
		cs.RawValue = &raw
		cs.NormalizedScore = normalized
	}
	cs.Contribution = cs.NormalizedScore * weight
	return cs
}

// normalize maps a criterion's raw value through its curve. ok is false when
// the bundle lacks the data the criterion needs.
func normalize(name types.CriterionName, b *types.FeatureBundle, p *config.Profile) (raw, normalized float64, ok bool) {
	switch name {
	case types.CriterionCanopy:
		if b.CanopyFraction == nil {
			return 0, 0, false
		}
		return *b.CanopyFraction, p.Curves.Canopy.Eval(*b.CanopyFraction), true

	case types.CriterionSlope:
		if b.SlopeDeg == nil {
			return 0, 0, false
		}
		return *b.SlopeDeg, p.Curves.Slope.Eval(*b.SlopeDeg), true

	case types.CriterionAspect:
		if b.AspectDeg == nil {
			return 0, 0, false
		}
		dist := geo.AngularDistance(*b.AspectDeg, p.Curves.AspectOptimalBearing)
		return *b.AspectDeg, p.Curves.AspectDistance.Eval(dist), true

	case types.CriterionIsolation:
		if b.RoadDistanceM == nil {
			return 0, 0, false
		}
		return *b.RoadDistanceM, p.Curves.Isolation.Eval(*b.RoadDistanceM), true

	case types.CriterionWindProtection:
		// Leeward shelter needs both the slope aspect and the wind bearing;
		// the slope shields the site when it faces away from the wind.
		if b.AspectDeg == nil || b.WindBearingDeg == nil {
			return 0, 0, false
		}
		dist := geo.AngularDistance(*b.WindBearingDeg, *b.AspectDeg)
		return dist, p.Curves.WindProtection.Eval(dist), true

	case types.CriterionThermalBonus:
		if b.TemperatureF == nil {
			return 0, 0, false
		}
		return *b.TemperatureF, p.Curves.ThermalBonus.Eval(*b.TemperatureF), true
	}

	return 0, 0, false
}
