package geo

import "math"

// earthRadiusMeters is the mean spherical-earth radius.
const earthRadiusMeters = 6371000

// DistanceMeters returns the great-circle distance between two WGS-84
// points given in decimal degrees. The atan2 form is used so rounding near
// antipodal points cannot push the asin argument out of domain.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// Within reports whether the user point lies inside (or exactly on) the
// circle of radiusMeters around the target point.
func Within(userLat, userLon, targetLat, targetLon, radiusMeters float64) bool {
	return DistanceMeters(userLat, userLon, targetLat, targetLon) <= radiusMeters
}
