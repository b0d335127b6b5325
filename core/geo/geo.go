// Package geo provides great-circle distance helpers on a spherical Earth.
package geo

import "math"

const (
	earthRadiusM  = 6371000.0
	earthRadiusKm = 6367.0
)

// DistanceMeters returns the haversine distance in meters between two
// coordinates given in degrees.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	return haversine(lat1, lon1, lat2, lon2) * earthRadiusM
}

// DistanceKm returns the haversine distance in kilometers. It uses a
// slightly smaller Earth radius than DistanceMeters; callers must not mix
// the two within one computation path.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	return haversine(lat1, lon1, lat2, lon2) * earthRadiusKm
}

// haversine returns the central angle in radians between two points.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	// Floating-point rounding can push a marginally outside [0,1], which
	// would turn Sqrt or Asin into NaN.
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	return 2 * math.Asin(math.Sqrt(a))
}
