// profile.go defines the biological criteria profile: the weights, normalization
// bands, hard gates, relaxation tiers, and tuning thresholds that drive the
// suitability engine. The profile ships with compiled-in defaults and may be
// overridden per deployment by a YAML file.
//
// Profile validation is the enforcement point for the engine's configuration
// invariants: criterion weights must sum to 1.0, relaxation tiers may only
// loosen gates, and every tier's gate range must remain a strict subset of the
// biologically plausible envelope. A tier that widens the aspect sector to the
// universal set is rejected here, before any query is served.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"bedsight/internal/geo"
	"bedsight/internal/types"
)

// weightTolerance is the permitted deviation from 1.0 for the weight sum.
const weightTolerance = 1e-6

// BandCurve is a trapezoidal "optimal band" normalization curve. Values inside
// [OptLo, OptHi] score 1.0; values decay linearly to 0 at ZeroLo / ZeroHi and
// are strictly monotonic on both shoulders.
//
// Two degenerate forms are allowed:
//   - ZeroLo == OptLo: no low shoulder (the domain minimum is already optimal).
//   - OpenHigh: values above OptLo never decay (e.g., road distance, where
//     farther is never worse). OptHi and ZeroHi are ignored.
type BandCurve struct {
	ZeroLo   float64 `yaml:"zero_lo"`
	OptLo    float64 `yaml:"opt_lo"`
	OptHi    float64 `yaml:"opt_hi"`
	ZeroHi   float64 `yaml:"zero_hi"`
	OpenHigh bool    `yaml:"open_high,omitempty"`
}

// Eval maps a raw value through the curve to a normalized score in [0, 1].
func (c BandCurve) Eval(v float64) float64 {
	if c.OpenHigh {
		switch {
		case v >= c.OptLo:
			return 1.0
		case v <= c.ZeroLo:
			return 0.0
		default:
			return (v - c.ZeroLo) / (c.OptLo - c.ZeroLo)
		}
	}
	switch {
	case v >= c.OptLo && v <= c.OptHi:
		return 1.0
	case v <= c.ZeroLo || v >= c.ZeroHi:
		return 0.0
	case v < c.OptLo:
		return (v - c.ZeroLo) / (c.OptLo - c.ZeroLo)
	default:
		return (c.ZeroHi - v) / (c.ZeroHi - c.OptHi)
	}
}

// validate checks the curve's shape. name is used in error messages.
func (c BandCurve) validate(name string) error {
	if c.OpenHigh {
		if c.ZeroLo > c.OptLo {
			return types.NewAppError(types.ErrCodeConfigCurve,
				fmt.Sprintf("curve %s: zero_lo %.3f exceeds opt_lo %.3f", name, c.ZeroLo, c.OptLo), nil)
		}
		return nil
	}
	if c.ZeroLo > c.OptLo || c.OptLo > c.OptHi || c.OptHi > c.ZeroHi {
		return types.NewAppError(types.ErrCodeConfigCurve,
			fmt.Sprintf("curve %s: bounds must satisfy zero_lo <= opt_lo <= opt_hi <= zero_hi (got %.3f, %.3f, %.3f, %.3f)",
				name, c.ZeroLo, c.OptLo, c.OptHi, c.ZeroHi), nil)
	}
	// A flat shoulder would cluster unrelated inputs around the same score;
	// each shoulder must either decay strictly or not exist at all.
	if c.ZeroLo == c.OptLo && c.ZeroHi == c.OptHi && c.OptLo == c.OptHi {
		return types.NewAppError(types.ErrCodeConfigCurve,
			fmt.Sprintf("curve %s: degenerate single-point band", name), nil)
	}
	return nil
}

// CurveSet holds one normalization curve per criterion. Aspect and wind
// protection are evaluated over angular distances (see the suitability
// package), the rest over the raw feature value.
type CurveSet struct {
	Canopy BandCurve `yaml:"canopy"`
	Slope  BandCurve `yaml:"slope"`
	// AspectOptimalBearing is the compass bearing bedding slopes ideally face.
	// AspectDistance is evaluated over the angular distance from that bearing.
	AspectOptimalBearing float64   `yaml:"aspect_optimal_bearing"`
	AspectDistance       BandCurve `yaml:"aspect_distance"`
	Isolation            BandCurve `yaml:"isolation"`
	// WindProtection is evaluated over the angular distance between the wind
	// bearing and the downhill aspect; near 180 the slope is leeward.
	WindProtection BandCurve `yaml:"wind_protection"`
	ThermalBonus   BandCurve `yaml:"thermal_bonus"`
}

// GateSet defines the hard pass/fail bounds for a scoring pass. Gates are
// independent of weighting: a value outside its gate disqualifies the point
// outright. Gates only apply to available values; an unavailable feature
// routes through the degraded-default path instead.
type GateSet struct {
	AspectSectorFrom float64 `yaml:"aspect_sector_from"`
	AspectSectorTo   float64 `yaml:"aspect_sector_to"`
	SlopeMaxDeg      float64 `yaml:"slope_max_deg"`
	CanopyMin        float64 `yaml:"canopy_min"`
	RoadDistanceMinM float64 `yaml:"road_distance_min_m"`
}

// RelaxationTier is one step of the fallback search's gate-loosening ladder.
type RelaxationTier struct {
	Name  string  `yaml:"name"`
	Gates GateSet `yaml:"gates"`
}

// PlausibleEnvelope bounds how far any relaxation tier may loosen each gate.
// The envelope is the outer limit of what remains biologically meaningful:
// a tier whose gate range escapes the envelope has crossed from relaxation
// into elimination of the criterion and is rejected at load time.
type PlausibleEnvelope struct {
	AspectSectorFrom float64 `yaml:"aspect_sector_from"`
	AspectSectorTo   float64 `yaml:"aspect_sector_to"`
	SlopeMaxDeg      float64 `yaml:"slope_max_deg"`
	CanopyMin        float64 `yaml:"canopy_min"`
	RoadDistanceMinM float64 `yaml:"road_distance_min_m"`
}

// ScoringConfig holds composite-score thresholds.
type ScoringConfig struct {
	// DegradedDefault is the conservative normalized score assigned to a
	// criterion whose raw value is unavailable. Deliberately neither 0 nor 1.
	DegradedDefault float64 `yaml:"degraded_default"`
	// DisqualifyBelow is the composite-score floor (0-100). Scores under it
	// disqualify the point even when every hard gate passes, and it is the
	// boundary the confidence calibrator measures margin against.
	DisqualifyBelow float64 `yaml:"disqualify_below"`
}

// SearchConfig tunes the fallback search's probe geometry.
type SearchConfig struct {
	MaxRadiusM   float64 `yaml:"max_radius_m"`
	RingStepM    float64 `yaml:"ring_step_m"`
	RingBearings int     `yaml:"ring_bearings"`
}

// ConfidenceConfig tunes the calibrator.
type ConfidenceConfig struct {
	MarginWeight       float64 `yaml:"margin_weight"`
	CompletenessWeight float64 `yaml:"completeness_weight"`
	// MaxDegradedFraction caps confidence at the completeness value when more
	// than this fraction of criteria used degraded defaults.
	MaxDegradedFraction float64 `yaml:"max_degraded_fraction"`
}

// BearingConfig tunes the directional combiner.
type BearingConfig struct {
	// WindDominanceThresholdMPH is the wind speed at and above which wind
	// overrides thermal and downhill signals.
	WindDominanceThresholdMPH float64 `yaml:"wind_dominance_threshold_mph"`
	// ThermalWindCap is the wind share the blend approaches as wind speed
	// nears the dominance threshold while thermals are active.
	ThermalWindCap float64 `yaml:"thermal_wind_cap"`
	// InactiveWindCap is the wind share cap during thermal lulls.
	InactiveWindCap float64 `yaml:"inactive_wind_cap"`
	// DominantWindShare is the wind share once the threshold is crossed.
	DominantWindShare float64 `yaml:"dominant_wind_share"`
}

// Profile is the complete biological criteria profile for one species/region.
type Profile struct {
	Name    string `yaml:"name"`
	Weights map[types.CriterionName]float64 `yaml:"weights"`

	Curves   CurveSet          `yaml:"curves"`
	Gates    GateSet           `yaml:"gates"`
	Envelope PlausibleEnvelope `yaml:"envelope"`
	Tiers    []RelaxationTier  `yaml:"tiers"`

	Scoring    ScoringConfig    `yaml:"scoring"`
	Search     SearchConfig     `yaml:"search"`
	Confidence ConfidenceConfig `yaml:"confidence"`
	Bearing    BearingConfig    `yaml:"bearing"`
}

// DefaultProfile returns the compiled-in whitetail bedding profile.
func DefaultProfile() *Profile {
	return &Profile{
		Name: "whitetail-default",
		Weights: map[types.CriterionName]float64{
			types.CriterionCanopy:         0.25,
			types.CriterionSlope:          0.20,
			types.CriterionAspect:         0.20,
			types.CriterionIsolation:      0.15,
			types.CriterionWindProtection: 0.10,
			types.CriterionThermalBonus:   0.10,
		},
		Curves: CurveSet{
			Canopy:               BandCurve{ZeroLo: 0.2, OptLo: 0.6, OptHi: 0.95, ZeroHi: 1.2},
			Slope:                BandCurve{ZeroLo: 0.0, OptLo: 5.0, OptHi: 20.0, ZeroHi: 35.0},
			AspectOptimalBearing: 180.0,
			AspectDistance:       BandCurve{ZeroLo: 0.0, OptLo: 0.0, OptHi: 25.0, ZeroHi: 65.0},
			Isolation:            BandCurve{ZeroLo: 50.0, OptLo: 500.0, OpenHigh: true},
			WindProtection:       BandCurve{ZeroLo: 30.0, OptLo: 120.0, OptHi: 180.0, ZeroHi: 181.0},
			ThermalBonus:         BandCurve{ZeroLo: -10.0, OptLo: 25.0, OptHi: 55.0, ZeroHi: 90.0},
		},
		Gates: GateSet{
			AspectSectorFrom: 135.0,
			AspectSectorTo:   225.0,
			SlopeMaxDeg:      35.0,
			CanopyMin:        0.3,
			RoadDistanceMinM: 100.0,
		},
		Envelope: PlausibleEnvelope{
			// SE through SW: the widest sector a bedding aspect can plausibly
			// occupy. Tiers must stay inside it; 90-270 or wider is rejected.
			AspectSectorFrom: 112.5,
			AspectSectorTo:   247.5,
			SlopeMaxDeg:      45.0,
			CanopyMin:        0.15,
			RoadDistanceMinM: 25.0,
		},
		Tiers: []RelaxationTier{
			{
				Name: "widened-aspect",
				Gates: GateSet{
					AspectSectorFrom: 120.0,
					AspectSectorTo:   240.0,
					SlopeMaxDeg:      38.0,
					CanopyMin:        0.3,
					RoadDistanceMinM: 75.0,
				},
			},
			{
				Name: "envelope-limit",
				Gates: GateSet{
					AspectSectorFrom: 112.5,
					AspectSectorTo:   247.5,
					SlopeMaxDeg:      42.0,
					CanopyMin:        0.25,
					RoadDistanceMinM: 50.0,
				},
			},
		},
		Scoring: ScoringConfig{
			DegradedDefault: 0.5,
			DisqualifyBelow: 40.0,
		},
		Search: SearchConfig{
			MaxRadiusM:   800.0,
			RingStepM:    75.0,
			RingBearings: 8,
		},
		Confidence: ConfidenceConfig{
			MarginWeight:        0.6,
			CompletenessWeight:  0.4,
			MaxDegradedFraction: 0.5,
		},
		Bearing: BearingConfig{
			WindDominanceThresholdMPH: 20.0,
			ThermalWindCap:            0.25,
			InactiveWindCap:           0.40,
			DominantWindShare:         0.65,
		},
	}
}

// LoadProfile reads a YAML profile from path, overlaying it on the defaults,
// and validates the result. An empty path returns the validated defaults.
func LoadProfile(path string) (*Profile, error) {
	p := DefaultProfile()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeConfigProfileFile,
				fmt.Sprintf("reading profile %s", path), err)
		}
		if err := yaml.Unmarshal(data, p); err != nil {
			return nil, types.NewAppError(types.ErrCodeConfigProfileFile,
				fmt.Sprintf("parsing profile %s", path), err)
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks every profile invariant. It is called once at configuration
// load; a profile that fails validation must never serve a query.
func (p *Profile) Validate() error {
	// Weights: one per known criterion, non-negative, summing to 1.0.
	var sum float64
	for _, name := range types.AllCriteria {
		w, ok := p.Weights[name]
		if !ok {
			return types.NewAppError(types.ErrCodeConfigWeights,
				fmt.Sprintf("missing weight for criterion %q", name), nil)
		}
		if w < 0 {
			return types.NewAppError(types.ErrCodeConfigWeights,
				fmt.Sprintf("negative weight %.4f for criterion %q", w, name), nil)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return types.NewAppError(types.ErrCodeConfigWeights,
			fmt.Sprintf("criterion weights sum to %.6f, must sum to 1.0", sum), nil)
	}
	if len(p.Weights) != len(types.AllCriteria) {
		return types.NewAppError(types.ErrCodeConfigWeights,
			fmt.Sprintf("profile declares %d weights for %d criteria", len(p.Weights), len(types.AllCriteria)), nil)
	}

	// Curves.
	curves := []struct {
		name  string
		curve BandCurve
	}{
		{"canopy", p.Curves.Canopy},
		{"slope", p.Curves.Slope},
		{"aspect_distance", p.Curves.AspectDistance},
		{"isolation", p.Curves.Isolation},
		{"wind_protection", p.Curves.WindProtection},
		{"thermal_bonus", p.Curves.ThermalBonus},
	}
	for _, c := range curves {
		if err := c.curve.validate(c.name); err != nil {
			return err
		}
	}

	// Base gates must themselves sit inside the envelope.
	if err := p.validateGates("base", p.Gates); err != nil {
		return err
	}

	// Tiers: loosen-only relative to the previous tier, and always inside the
	// envelope. Tier 0 in the ladder is the base gate set.
	prev := p.Gates
	for i, tier := range p.Tiers {
		label := fmt.Sprintf("tier %d (%s)", i+1, tier.Name)
		if err := p.validateGates(label, tier.Gates); err != nil {
			return err
		}
		g := tier.Gates
		if !sectorContains(g.AspectSectorFrom, g.AspectSectorTo, prev.AspectSectorFrom, prev.AspectSectorTo) {
			return types.NewAppError(types.ErrCodeConfigTier,
				fmt.Sprintf("%s: aspect sector [%.1f, %.1f] does not contain the previous tier's sector", label, g.AspectSectorFrom, g.AspectSectorTo), nil)
		}
		if g.SlopeMaxDeg < prev.SlopeMaxDeg {
			return types.NewAppError(types.ErrCodeConfigTier,
				fmt.Sprintf("%s: slope_max_deg %.1f tightens the previous tier's %.1f", label, g.SlopeMaxDeg, prev.SlopeMaxDeg), nil)
		}
		if g.CanopyMin > prev.CanopyMin {
			return types.NewAppError(types.ErrCodeConfigTier,
				fmt.Sprintf("%s: canopy_min %.2f tightens the previous tier's %.2f", label, g.CanopyMin, prev.CanopyMin), nil)
		}
		if g.RoadDistanceMinM > prev.RoadDistanceMinM {
			return types.NewAppError(types.ErrCodeConfigTier,
				fmt.Sprintf("%s: road_distance_min_m %.0f tightens the previous tier's %.0f", label, g.RoadDistanceMinM, prev.RoadDistanceMinM), nil)
		}
		prev = g
	}

	// Scoring.
	if p.Scoring.DegradedDefault <= 0 || p.Scoring.DegradedDefault >= 1 {
		return types.NewAppError(types.ErrCodeConfigCurve,
			fmt.Sprintf("degraded_default %.3f must be strictly between 0 and 1", p.Scoring.DegradedDefault), nil)
	}
	if p.Scoring.DisqualifyBelow < 0 || p.Scoring.DisqualifyBelow >= 100 {
		return types.NewAppError(types.ErrCodeConfigCurve,
			fmt.Sprintf("disqualify_below %.1f must be in [0, 100)", p.Scoring.DisqualifyBelow), nil)
	}

	// Search geometry.
	if p.Search.MaxRadiusM <= 0 {
		return types.NewAppError(types.ErrCodeConfigSearch,
			fmt.Sprintf("max_radius_m %.1f must be positive", p.Search.MaxRadiusM), nil)
	}
	if p.Search.RingStepM <= 0 || p.Search.RingStepM > p.Search.MaxRadiusM {
		return types.NewAppError(types.ErrCodeConfigSearch,
			fmt.Sprintf("ring_step_m %.1f must be positive and no larger than max_radius_m", p.Search.RingStepM), nil)
	}
	if p.Search.RingBearings < 4 || p.Search.RingBearings > 64 {
		return types.NewAppError(types.ErrCodeConfigSearch,
			fmt.Sprintf("ring_bearings %d must be between 4 and 64", p.Search.RingBearings), nil)
	}

	// Confidence.
	wsum := p.Confidence.MarginWeight + p.Confidence.CompletenessWeight
	if math.Abs(wsum-1.0) > weightTolerance {
		return types.NewAppError(types.ErrCodeConfigWeights,
			fmt.Sprintf("confidence weights sum to %.6f, must sum to 1.0", wsum), nil)
	}
	if p.Confidence.MaxDegradedFraction <= 0 || p.Confidence.MaxDegradedFraction > 1 {
		return types.NewAppError(types.ErrCodeConfigWeights,
			fmt.Sprintf("max_degraded_fraction %.3f must be in (0, 1]", p.Confidence.MaxDegradedFraction), nil)
	}

	// Bearing.
	b := p.Bearing
	if b.WindDominanceThresholdMPH <= 0 {
		return types.NewAppError(types.ErrCodeConfigCurve,
			fmt.Sprintf("wind_dominance_threshold_mph %.1f must be positive", b.WindDominanceThresholdMPH), nil)
	}
	if b.ThermalWindCap < 0 || b.ThermalWindCap >= 0.5 {
		return types.NewAppError(types.ErrCodeConfigCurve,
			fmt.Sprintf("thermal_wind_cap %.2f must be in [0, 0.5)", b.ThermalWindCap), nil)
	}
	if b.InactiveWindCap < 0 || b.InactiveWindCap >= 0.5 {
		return types.NewAppError(types.ErrCodeConfigCurve,
			fmt.Sprintf("inactive_wind_cap %.2f must be in [0, 0.5)", b.InactiveWindCap), nil)
	}
	if b.DominantWindShare <= 0.5 || b.DominantWindShare >= 1 {
		return types.NewAppError(types.ErrCodeConfigCurve,
			fmt.Sprintf("dominant_wind_share %.2f must be in (0.5, 1)", b.DominantWindShare), nil)
	}

	return nil
}

// validateGates checks that a gate set is internally coherent and stays inside
// the plausible envelope. This is the guard against relaxing a gate into the
// universal set: an aspect sector covering every bearing, or one escaping the
// envelope, is a configuration bug and is rejected with a descriptive error.
func (p *Profile) validateGates(label string, g GateSet) error {
	width := geo.SectorWidth(g.AspectSectorFrom, g.AspectSectorTo)
	if width <= 0 || width >= 360.0 {
		return types.NewAppError(types.ErrCodeConfigGate,
			fmt.Sprintf("%s: aspect sector [%.1f, %.1f] spans %.1f degrees; the sector must be a strict subset of the compass", label, g.AspectSectorFrom, g.AspectSectorTo, width), nil)
	}
	if !sectorContains(p.Envelope.AspectSectorFrom, p.Envelope.AspectSectorTo, g.AspectSectorFrom, g.AspectSectorTo) {
		return types.NewAppError(types.ErrCodeConfigGate,
			fmt.Sprintf("%s: aspect sector [%.1f, %.1f] escapes the plausible envelope [%.1f, %.1f]",
				label, g.AspectSectorFrom, g.AspectSectorTo, p.Envelope.AspectSectorFrom, p.Envelope.AspectSectorTo), nil)
	}
	if g.SlopeMaxDeg <= 0 || g.SlopeMaxDeg > p.Envelope.SlopeMaxDeg {
		return types.NewAppError(types.ErrCodeConfigGate,
			fmt.Sprintf("%s: slope_max_deg %.1f outside (0, %.1f]", label, g.SlopeMaxDeg, p.Envelope.SlopeMaxDeg), nil)
	}
	if g.CanopyMin < p.Envelope.CanopyMin || g.CanopyMin > 1 {
		return types.NewAppError(types.ErrCodeConfigGate,
			fmt.Sprintf("%s: canopy_min %.2f outside [%.2f, 1]", label, g.CanopyMin, p.Envelope.CanopyMin), nil)
	}
	if g.RoadDistanceMinM < p.Envelope.RoadDistanceMinM {
		return types.NewAppError(types.ErrCodeConfigGate,
			fmt.Sprintf("%s: road_distance_min_m %.0f below envelope minimum %.0f", label, g.RoadDistanceMinM, p.Envelope.RoadDistanceMinM), nil)
	}
	return nil
}

// GatesForTier returns the effective gate set for a relaxation tier index.
// Index 0 is the base gates; index i > 0 is Tiers[i-1].
func (p *Profile) GatesForTier(tier int) GateSet {
	if tier <= 0 || tier > len(p.Tiers) {
		return p.Gates
	}
	return p.Tiers[tier-1].Gates
}

// TierCount returns the number of gate sets in the relaxation ladder,
// including the base set at index 0.
func (p *Profile) TierCount() int {
	return len(p.Tiers) + 1
}

// sectorContains reports whether the sector [outerFrom, outerTo] fully
// contains the sector [innerFrom, innerTo], with wrap through north.
func sectorContains(outerFrom, outerTo, innerFrom, innerTo float64) bool {
	return geo.WithinSector(innerFrom, outerFrom, outerTo) &&
		geo.WithinSector(innerTo, outerFrom, outerTo) &&
		geo.SectorWidth(innerFrom, innerTo) <= geo.SectorWidth(outerFrom, outerTo)
}
