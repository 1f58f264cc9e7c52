package geo

import "math"

const (
	// ArrivalRadiusMeters is the stop arrival accuracy threshold.
	ArrivalRadiusMeters = 30.0
	// MetersPerKm is the conversion factor from kilometers to meters.
	MetersPerKm = 1000.0
	// EarthRadiusKm is Earth's radius in kilometers for Haversine calculation.
	EarthRadiusKm = 6371.0088
)

// KmToMeters converts kilometers to meters.
func KmToMeters(km float64) float64 {
	return km * MetersPerKm
}

// HaversineKm calculates the great-circle distance between two points
// on Earth in kilometers using the Haversine formula.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const degToRad = math.Pi / 180
	dLat := (lat2 - lat1) * degToRad
	dLng := (lng2 - lng1) * degToRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// IsWithinRadius checks if two coordinates are within the specified radius (in meters).
func IsWithinRadius(lat1, lng1, lat2, lng2 float64, radiusMeters float64) bool {
	return KmToMeters(HaversineKm(lat1, lng1, lat2, lng2)) <= radiusMeters
}

// Interpolate returns the point at fraction frac along the straight line
// from (lat1,lng1) to (lat2,lng2). frac is clamped to [0,1]. Linear in
// lat/lng space, which is adequate at delivery-trip distances.
func Interpolate(lat1, lng1, lat2, lng2, frac float64) (lat, lng float64) {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return lat1 + (lat2-lat1)*frac, lng1 + (lng2-lng1)*frac
}
