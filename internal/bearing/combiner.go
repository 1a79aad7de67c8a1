package bearing

import (
	"math"
	"time"

	"bedsight/internal/config"
	"bedsight/internal/geo"
	"bedsight/internal/types"
)

// Combine merges the downhill fall line, the thermal draft, and the prevailing
// wind into one predicted travel bearing via a weighted circular mean. The
// component weights are returned with the blend for explainability.
//
// Weighting is wind-speed-gated:
//   - Thermal active, wind below the dominance threshold: thermal+downhill
//     dominate; the wind share grows continuously from 0 toward the configured
//     cap as speed approaches the threshold.
//   - Wind at or above the threshold: wind dominates regardless of phase, with
//     thermal and downhill reduced to the minority remainder.
//   - Thermal inactive: downhill plus a wind share linear in speed up to the
//     inactive cap.
//
// If thermal.Phase is empty, the phase is derived from at via PhaseFor.
func Combine(
	downhillDeg float64,
	thermal types.ThermalState,
	wind types.WindState,
	at time.Time,
	cfg config.BearingConfig,
) types.DirectionalBlend {
	phase := thermal.Phase
	if phase == "" {
		phase = PhaseFor(at)
	}

	// A zero-valued thermal state means "derive it": direction follows the
	// fall line for the phase, and the draft is assumed established. The
	// phase factor still discounts forming and decaying phases.
	thermalDir := thermal.DirectionDeg
	strength := thermal.Strength
	if thermalDir == 0 && strength == 0 {
		thermalDir = ThermalDirectionFor(phase, downhillDeg)
		strength = 1.0
	}

	weights := blendWeights(phase, strength, wind.SpeedMPH, cfg)

	mean, magnitude := geo.CircularMean(
		[]float64{thermalDir, geo.NormalizeBearing(downhillDeg), geo.NormalizeBearing(wind.DirectionDeg)},
		[]float64{weights.Thermal, weights.Downhill, weights.Wind},
	)

	// Opposed signals can cancel the resultant vector; the fall line is the
	// only signal that never disappears, so it breaks the tie.
	if magnitude < 1e-9 {
		mean = geo.NormalizeBearing(downhillDeg)
	}

	return types.DirectionalBlend{
		BearingDeg:       mean,
		ComponentWeights: weights,
	}
}

// blendWeights computes the component shares. The shares always sum to 1.0.
func blendWeights(phase types.ThermalPhase, strength, windSpeed float64, cfg config.BearingConfig) types.BlendWeights {
	threshold := cfg.WindDominanceThresholdMPH
	eff := clamp01(strength) * phaseFactor(phase)

	var windW float64
	switch {
	case windSpeed >= threshold:
		windW = cfg.DominantWindShare
	case phase.Active():
		windW = cfg.ThermalWindCap * (windSpeed / threshold)
	default:
		windW = cfg.InactiveWindCap * math.Min(1.0, windSpeed/threshold)
	}

	rem := 1.0 - windW
	var thermalW float64
	if phase.Active() {
		// Split the remainder between thermal and downhill in proportion to
		// the effective draft strength; an established draft takes up to half.
		thermalW = rem * (eff / (eff + 1.0))
	}
	downhillW := rem - thermalW

	return types.BlendWeights{
		Thermal:  thermalW,
		Downhill: downhillW,
		Wind:     windW,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
