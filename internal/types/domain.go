package types

import "time"

// Location represents a geographic coordinate with an optional display name.
type Location struct {
	Lat         float64 `json:"lat" validate:"latitude"`
	Lon         float64 `json:"lon" validate:"longitude"`
	DisplayName string  `json:"display_name,omitempty"`
}

// FeatureBundle contains the terrain, access, and weather attributes sampled for
// a single query point. A bundle is produced fresh per query and never mutated;
// nil pointer fields mean the provider could not supply that attribute, which
// routes the affected criterion through the degraded-default path.
type FeatureBundle struct {
	Location Location `json:"location"`

	// Terrain
	ElevationM     *float64 `json:"elevation_m,omitempty"`
	SlopeDeg       *float64 `json:"slope_deg,omitempty"`
	AspectDeg      *float64 `json:"aspect_deg,omitempty"`
	CanopyFraction *float64 `json:"canopy_fraction,omitempty"`

	// Access
	RoadDistanceM *float64 `json:"road_distance_m,omitempty"`

	// Weather snapshot
	WindBearingDeg *float64 `json:"wind_bearing_deg,omitempty"`
	WindSpeedMPH   *float64 `json:"wind_speed_mph,omitempty"`
	TemperatureF   *float64 `json:"temperature_f,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// CriterionName identifies a single scoring dimension.
type CriterionName string

const (
	CriterionCanopy         CriterionName = "canopy"
	CriterionSlope          CriterionName = "slope"
	CriterionAspect         CriterionName = "aspect"
	CriterionIsolation      CriterionName = "isolation"
	CriterionWindProtection CriterionName = "wind_protection"
	CriterionThermalBonus   CriterionName = "thermal_bonus"
)

// AllCriteria lists every scoring dimension in evaluation order.
// The order is stable so that two scoring passes over the same bundle
// produce byte-identical results.
var AllCriteria = []CriterionName{
	CriterionCanopy,
	CriterionSlope,
	CriterionAspect,
	CriterionIsolation,
	CriterionWindProtection,
	CriterionThermalBonus,
}

// CriterionScore is the per-dimension breakdown of a scoring pass.
// Contribution is always NormalizedScore * Weight. Degraded is true when the
// raw value was unavailable and the configured conservative default was used.
type CriterionScore struct {
	Name            CriterionName `json:"name"`
	RawValue        *float64      `json:"raw_value,omitempty"`
	NormalizedScore float64       `json:"normalized_score"`
	Weight          float64       `json:"weight"`
	Contribution    float64       `json:"contribution"`
	Degraded        bool          `json:"degraded"`
}

// SuitabilityResult is the outcome of scoring one candidate point.
// When Disqualified is true the composite score is diagnostic only and must
// never be used to rank or surface the point as an accepted site.
type SuitabilityResult struct {
	Location               Location         `json:"location"`
	CompositeScore         float64          `json:"composite_score"`
	Criteria               []CriterionScore `json:"criteria"`
	Disqualified           bool             `json:"disqualified"`
	DisqualificationReason string           `json:"disqualification_reason,omitempty"`
}

// DataCompleteness returns the fraction of criteria backed by real provider
// data (as opposed to degraded defaults). Returns 1.0 for an empty breakdown.
func (r *SuitabilityResult) DataCompleteness() float64 {
	if len(r.Criteria) == 0 {
		return 1.0
	}
	real := 0
	for _, c := range r.Criteria {
		if !c.Degraded {
			real++
		}
	}
	return float64(real) / float64(len(r.Criteria))
}

// SearchCandidate is a probe point generated during one fallback search
// invocation. Candidates are transient: they are discarded when the search
// returns and are never persisted.
type SearchCandidate struct {
	Location            Location          `json:"location"`
	DistanceFromOriginM float64           `json:"distance_from_origin_m"`
	RelaxationTier      int               `json:"relaxation_tier"`
	Result              SuitabilityResult `json:"result"`
}

// ConfidenceBasis records the two signals a calibrated confidence was derived from.
type ConfidenceBasis struct {
	DataCompleteness float64 `json:"data_completeness"`
	ScoreMargin      float64 `json:"score_margin"`
}

// CalibratedConfidence is the user-facing certainty measure for a result.
// Derived and read-only; recomputed per result.
type CalibratedConfidence struct {
	Value float64         `json:"value"`
	Basis ConfidenceBasis `json:"basis"`
}

// ThermalPhase describes the diurnal thermal-draft cycle stage.
type ThermalPhase string

const (
	ThermalInactive        ThermalPhase = "inactive"
	ThermalForming         ThermalPhase = "forming"
	ThermalStrongDownslope ThermalPhase = "strong_downslope"
	ThermalStrongUpslope   ThermalPhase = "strong_upslope"
	ThermalPeak            ThermalPhase = "peak"
	ThermalPostPeak        ThermalPhase = "post_peak"
)

// Active reports whether thermal airflow contributes to the directional blend
// during this phase.
func (p ThermalPhase) Active() bool {
	switch p {
	case ThermalForming, ThermalStrongDownslope, ThermalStrongUpslope, ThermalPeak, ThermalPostPeak:
		return true
	}
	return false
}

// ThermalState is the thermal-draft input to the directional combiner.
type ThermalState struct {
	DirectionDeg float64      `json:"direction_deg" validate:"gte=0,lt=360"`
	Strength     float64      `json:"strength" validate:"gte=0,lte=1"`
	Phase        ThermalPhase `json:"phase"`
}

// WindState is the prevailing-wind input to the directional combiner.
type WindState struct {
	DirectionDeg float64 `json:"direction_deg" validate:"gte=0,lt=360"`
	SpeedMPH     float64 `json:"speed_mph" validate:"gte=0"`
}

// BlendWeights records the share each directional signal contributed to a blend.
// The weights sum to 1.0 and are surfaced for explainability.
type BlendWeights struct {
	Thermal  float64 `json:"thermal"`
	Downhill float64 `json:"downhill"`
	Wind     float64 `json:"wind"`
}

// DirectionalBlend is the combined predicted travel bearing. Recomputed per
// query; never cached across weather snapshots.
type DirectionalBlend struct {
	BearingDeg       float64      `json:"bearing_deg"`
	ComponentWeights BlendWeights `json:"component_weights"`
}

// Float64Ptr returns a pointer to v. Convenience for building FeatureBundles.
func Float64Ptr(v float64) *float64 { return &v }
