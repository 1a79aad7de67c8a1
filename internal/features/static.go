package features

import (
	"context"
	"math"
	"time"

	"bedsight/internal/types"
)

// StaticSource is a deterministic synthetic terrain model used for local mode
// and tests. Elevation is a smooth sinusoidal surface; slope and aspect fall
// out of its gradient, canopy varies with position, and a virtual road grid
// supplies isolation distances. The same coordinate always yields the same
// bundle, so search and scoring behavior is reproducible without providers.
type StaticSource struct {
	wind  *types.WindState
	tempF *float64
	clock func() time.Time
}

// StaticOption configures a StaticSource.
type StaticOption func(*StaticSource)

// WithStaticWind fixes the wind observation the source reports.
func WithStaticWind(wind types.WindState) StaticOption {
	return func(s *StaticSource) {
		w := wind
		s.wind = &w
	}
}

// WithStaticTemperature fixes the reported temperature in Fahrenheit.
func WithStaticTemperature(tempF float64) StaticOption {
	return func(s *StaticSource) {
		s.tempF = &tempF
	}
}

// WithStaticClock overrides the bundle timestamp source.
func WithStaticClock(clock func() time.Time) StaticOption {
	return func(s *StaticSource) {
		s.clock = clock
	}
}

// NewStaticSource builds the synthetic model. Defaults: a light 5 mph
// northwest wind and 45 F.
func NewStaticSource(opts ...StaticOption) *StaticSource {
	s := &StaticSource{
		wind:  &types.WindState{DirectionDeg: 315, SpeedMPH: 5},
		tempF: types.Float64Ptr(45),
		clock: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tuning constants for the synthetic surface. The elevation wavelength is a
// few hundred meters so a default-profile search radius crosses multiple
// aspect sectors.
const (
	terrainAmplitudeM = 120.0
	terrainWavelength = 0.004 // degrees per full sine cycle factor
	roadSpacingDeg    = 0.02  // virtual east-west roads every ~2.2 km
	metersPerDegLat   = 111320.0
)

func (s *StaticSource) Sample(_ context.Context, lat, lon float64) (*types.FeatureBundle, error) {
	slope, aspect := s.slopeAspect(lat, lon)
	canopy := 0.55 + 0.35*math.Sin((lat*3.1+lon*1.7)/terrainWavelength)

	bundle := &types.FeatureBundle{
		Location:       types.Location{Lat: lat, Lon: lon},
		ElevationM:     types.Float64Ptr(s.elevation(lat, lon)),
		SlopeDeg:       types.Float64Ptr(slope),
		AspectDeg:      types.Float64Ptr(aspect),
		CanopyFraction: types.Float64Ptr(clampUnit(canopy)),
		RoadDistanceM:  types.Float64Ptr(s.roadDistance(lat)),
		TemperatureF:   s.tempF,
		Timestamp:      s.clock(),
	}
	if s.wind != nil {
		bundle.WindBearingDeg = types.Float64Ptr(s.wind.DirectionDeg)
		bundle.WindSpeedMPH = types.Float64Ptr(s.wind.SpeedMPH)
	}
	return bundle, nil
}

// Healthy always succeeds; the synthetic model has no dependencies.
func (s *StaticSource) Healthy(context.Context) error { return nil }

func (s *StaticSource) elevation(lat, lon float64) float64 {
	return terrainAmplitudeM * (math.Sin(lat/terrainWavelength) + math.Cos(lon/terrainWavelength))
}

// slopeAspect derives slope (degrees from horizontal) and aspect (compass
// bearing of the downhill fall line) from the elevation gradient, estimated
// with a central difference over a short baseline.
func (s *StaticSource) slopeAspect(lat, lon float64) (slopeDeg, aspectDeg float64) {
	const deltaDeg = 1e-5 // ~1.1 m baseline

	metersPerDegLon := metersPerDegLat * math.Cos(lat*math.Pi/180.0)
	if metersPerDegLon < 1 {
		metersPerDegLon = 1
	}

	dzdLat := (s.elevation(lat+deltaDeg, lon) - s.elevation(lat-deltaDeg, lon)) / (2 * deltaDeg * metersPerDegLat)
	dzdLon := (s.elevation(lat, lon+deltaDeg) - s.elevation(lat, lon-deltaDeg)) / (2 * deltaDeg * metersPerDegLon)

	grad := math.Hypot(dzdLat, dzdLon)
	slopeDeg = math.Atan(grad) * 180.0 / math.Pi

	// Downhill points opposite the gradient. Compass: 0=N (+lat), 90=E (+lon).
	aspectDeg = math.Atan2(-dzdLon, -dzdLat) * 180.0 / math.Pi
	if aspectDeg < 0 {
		aspectDeg += 360.0
	}
	return slopeDeg, aspectDeg
}

// roadDistance is the distance to the nearest virtual east-west road line.
func (s *StaticSource) roadDistance(lat float64) float64 {
	offset := math.Mod(math.Abs(lat), roadSpacingDeg)
	if offset > roadSpacingDeg/2 {
		offset = roadSpacingDeg - offset
	}
	return offset * metersPerDegLat
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
