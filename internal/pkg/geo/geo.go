package geo

import (
	"errors"
	"math"
)

// EarthRadiusMeters is the mean Earth radius.
const EarthRadiusMeters = 6371000.0

var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
)

type Point struct {
	Latitude  float64
	Longitude float64
}

// Evaluation is the result of checking a point against a circular area.
type Evaluation struct {
	Inside         bool
	DistanceMeters float64
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1)*math.Cos(lat2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// Evaluate reports whether p lies within radiusMeters of center. A point
// exactly on the boundary is inside.
func Evaluate(center Point, radiusMeters float64, p Point) Evaluation {
	d := Distance(center, p)
	return Evaluation{
		Inside:         d <= radiusMeters,
		DistanceMeters: d,
	}
}

// ValidatePoint checks coordinate ranges. Evaluate assumes valid input.
func ValidatePoint(p Point) error {
	if math.IsNaN(p.Latitude) || p.Latitude < -90 || p.Latitude > 90 {
		return ErrInvalidLatitude
	}
	if math.IsNaN(p.Longitude) || p.Longitude < -180 || p.Longitude > 180 {
		return ErrInvalidLongitude
	}
	return nil
}

func toRadians(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}
