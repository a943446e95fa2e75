package domain

import "math"

// earthRadiusKm is the mean Earth radius used for all great-circle math.
const earthRadiusKm = 6371.0

// Point is a WGS-84 latitude/longitude coordinate pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Coords returns the point as a [lat, lon] pair for serialized output.
func (p Point) Coords() [2]float64 {
	return [2]float64{p.Lat, p.Lon}
}

// Haversine returns the great-circle distance between a and b in kilometers.
func Haversine(a, b Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// SphericalMidpoint returns the point on the great-circle arc halfway between
// a and b, using the vector bisector formula. Averaging latitudes and
// longitudes is not equivalent: it breaks at the antimeridian and drifts at
// high latitude, so the vector form is required.
func SphericalMidpoint(a, b Point) Point {
	lat1 := radians(a.Lat)
	lon1 := radians(a.Lon)
	lat2 := radians(b.Lat)
	dLon := radians(b.Lon - a.Lon)

	bx := math.Cos(lat2) * math.Cos(dLon)
	by := math.Cos(lat2) * math.Sin(dLon)

	lat3 := math.Atan2(
		math.Sin(lat1)+math.Sin(lat2),
		math.Sqrt((math.Cos(lat1)+bx)*(math.Cos(lat1)+bx)+by*by),
	)
	lon3 := lon1 + math.Atan2(by, math.Cos(lat1)+bx)

	return Point{Lat: degrees(lat3), Lon: degrees(lon3)}
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
