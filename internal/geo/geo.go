// Package geo provides the small amount of spherical geometry the engine
// needs: great-circle distance, destination points for ring probes, and
// compass-bearing arithmetic.
package geo

import "math"

// earthRadiusM is the mean Earth radius used for spherical calculations.
const earthRadiusM = 6371000.0

// NormalizeBearing wraps an angle in degrees into [0, 360).
func NormalizeBearing(deg float64) float64 {
	deg = math.Mod(deg, 360.0)
	if deg < 0 {
		deg += 360.0
	}
	return deg
}

// AngularDistance returns the smallest absolute difference between two
// compass bearings, in degrees (0-180).
func AngularDistance(a, b float64) float64 {
	d := math.Abs(NormalizeBearing(a) - NormalizeBearing(b))
	if d > 180.0 {
		d = 360.0 - d
	}
	return d
}

// WithinSector reports whether a bearing falls inside the sector [from, to],
// handling sectors that wrap through north (from > to).
func WithinSector(bearing, from, to float64) bool {
	b := NormalizeBearing(bearing)
	from = NormalizeBearing(from)
	to = NormalizeBearing(to)
	if from <= to {
		return b >= from && b <= to
	}
	return b >= from || b <= to
}

// SectorWidth returns the angular width in degrees of the sector [from, to],
// handling wrap through north.
func SectorWidth(from, to float64) float64 {
	from = NormalizeBearing(from)
	to = NormalizeBearing(to)
	if from <= to {
		return to - from
	}
	return 360.0 - from + to
}

// HaversineM returns the great-circle distance in meters between two points.
func HaversineM(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180.0
	phi2 := lat2 * math.Pi / 180.0
	dPhi := (lat2 - lat1) * math.Pi / 180.0
	dLambda := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// DestinationPoint returns the point reached by traveling distanceM meters
// from (lat, lon) along the given compass bearing, on a spherical Earth.
func DestinationPoint(lat, lon, bearingDeg, distanceM float64) (destLat, destLon float64) {
	phi1 := lat * math.Pi / 180.0
	lambda1 := lon * math.Pi / 180.0
	theta := bearingDeg * math.Pi / 180.0
	delta := distanceM / earthRadiusM

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) +
		math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2),
	)

	destLat = phi2 * 180.0 / math.Pi
	destLon = lambda2 * 180.0 / math.Pi

	// Wrap longitude into [-180, 180).
	destLon = math.Mod(destLon+540.0, 360.0) - 180.0
	return destLat, destLon
}

// CircularMean combines bearings (degrees) weighted by the parallel weights
// slice into a single mean bearing via vector summation. It returns the mean
// bearing in [0, 360) and the resultant vector magnitude; a magnitude near
// zero means the inputs cancelled and the mean is unreliable.
func CircularMean(bearings, weights []float64) (meanDeg, magnitude float64) {
	var x, y float64
	for i, b := range bearings {
		w := 1.0
		if i < len(weights) {
			w = weights[i]
		}
		rad := b * math.Pi / 180.0
		// Compass convention: x is the east component, y the north component.
		x += w * math.Sin(rad)
		y += w * math.Cos(rad)
	}
	magnitude = math.Sqrt(x*x + y*y)
	if magnitude == 0 {
		return 0, 0
	}
	meanDeg = NormalizeBearing(math.Atan2(x, y) * 180.0 / math.Pi)
	return meanDeg, magnitude
}
