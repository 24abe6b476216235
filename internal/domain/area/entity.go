package area

import (
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/geo"
)

// Area is a circular geofence.
type Area struct {
	ID           string
	Name         string
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
	IsDefault    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a Area) Center() geo.Point {
	return geo.Point{Latitude: a.Latitude, Longitude: a.Longitude}
}

// Contains evaluates p against the area.
func (a Area) Contains(p geo.Point) geo.Evaluation {
	return geo.Evaluate(a.Center(), a.RadiusMeters, p)
}
