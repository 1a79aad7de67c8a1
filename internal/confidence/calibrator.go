// Package confidence turns a raw composite score into a calibrated, user-facing
// certainty measure. The calibration blends two signals: how far the score sits
// above the disqualification boundary (margin), and how much of the input data
// was real rather than degraded defaults (completeness). Sparse data caps the
// result so the engine never reports more certainty than its inputs support.
package confidence

import (
	"math"

	"bedsight/internal/config"
	"bedsight/internal/types"
)

// Calibrate derives the confidence for a scoring result. It is monotonically
// non-decreasing in both score margin and data completeness, and clipped to
// [0, 1]. Disqualified results carry zero margin: whatever confidence remains
// comes from data completeness alone.
func Calibrate(result *types.SuitabilityResult, profile *config.Profile) types.CalibratedConfidence {
	completeness := result.DataCompleteness()
	margin := scoreMargin(result, profile)

	cfg := profile.Confidence
	value := cfg.MarginWeight*marginCurve(margin) + cfg.CompletenessWeight*completeness

	// Sparse-data cap: when too many criteria ran on degraded defaults, the
	// composite score alone cannot justify high confidence.
	if 1.0-completeness > cfg.MaxDegradedFraction {
		value = math.Min(value, completeness)
	}

	return types.CalibratedConfidence{
		Value: clamp01(value),
		Basis: types.ConfidenceBasis{
			DataCompleteness: completeness,
			ScoreMargin:      margin,
		},
	}
}

// scoreMargin measures how far the composite sits above the disqualification
// boundary, normalized to [0, 1]. Disqualified results always report zero.
func scoreMargin(result *types.SuitabilityResult, profile *config.Profile) float64 {
	if result.Disqualified {
		return 0.0
	}
	boundary := profile.Scoring.DisqualifyBelow
	span := 100.0 - boundary
	if span <= 0 {
		return 1.0
	}
	return clamp01((result.CompositeScore - boundary) / span)
}

// marginCurve maps the normalized margin through a concave monotonic curve:
// scores just clear of the boundary gain confidence quickly, while the far
// end saturates toward 1.
func marginCurve(margin float64) float64 {
	return math.Sqrt(clamp01(margin))
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
