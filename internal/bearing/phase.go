// Package bearing implements the directional combiner: it merges the downhill
// fall line, thermal drafts, and prevailing wind into a single predicted
// travel bearing, weighted by the diurnal thermal phase and the actual wind
// speed. Thermal activity and wind dominance are two independent inputs to
// the weighting; the magnitude of one never stands in for the relevance of
// the other.
package bearing

import (
	"time"

	"bedsight/internal/geo"
	"bedsight/internal/types"
)

// Diurnal phase boundaries, in local hours. Slope drainage runs overnight,
// reverses after sunrise, builds to an afternoon peak, and collapses through
// an evening lull before drainage re-establishes.
const (
	hourDrainageEnd   = 6  // overnight downslope drainage ends
	hourFormingEnd    = 9  // post-sunrise reversal complete
	hourUpslopeEnd    = 12 // upslope flow established
	hourPeakEnd       = 15 // strongest upslope convection
	hourPostPeakEnd   = 18 // decaying upslope
	hourLullEnd       = 20 // evening reversal lull
)

// PhaseFor returns the thermal phase for a local time of day.
func PhaseFor(t time.Time) types.ThermalPhase {
	switch h := t.Hour(); {
	case h < hourDrainageEnd:
		return types.ThermalStrongDownslope
	case h < hourFormingEnd:
		return types.ThermalForming
	case h < hourUpslopeEnd:
		return types.ThermalStrongUpslope
	case h < hourPeakEnd:
		return types.ThermalPeak
	case h < hourPostPeakEnd:
		return types.ThermalPostPeak
	case h < hourLullEnd:
		return types.ThermalInactive
	default:
		return types.ThermalStrongDownslope
	}
}

// phaseFactor scales the reported thermal strength by how established the
// draft is in each phase.
func phaseFactor(p types.ThermalPhase) float64 {
	switch p {
	case types.ThermalForming:
		return 0.5
	case types.ThermalStrongDownslope, types.ThermalStrongUpslope, types.ThermalPeak:
		return 1.0
	case types.ThermalPostPeak:
		return 0.6
	default:
		return 0.0
	}
}

// ThermalDirectionFor returns the default draft bearing for a phase on a
// slope with the given downhill bearing: downslope phases flow along the
// fall line, upslope phases against it.
func ThermalDirectionFor(p types.ThermalPhase, downhillDeg float64) float64 {
	switch p {
	case types.ThermalForming, types.ThermalStrongUpslope, types.ThermalPeak, types.ThermalPostPeak:
		return geo.NormalizeBearing(downhillDeg + 180.0)
	default:
		return geo.NormalizeBearing(downhillDeg)
	}
}
