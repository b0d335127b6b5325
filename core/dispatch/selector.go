package dispatch

import (
	"errors"

	"github.com/dserban/dern/core/geo"
	"github.com/dserban/dern/core/model"
)

// ErrNoCandidate indicates that assignment was requested without any
// assignable unit in the pool.
var ErrNoCandidate = errors.New("no candidate available")

// Selector picks the unit to send to an incident.
type Selector interface {
	// Select returns the chosen unit and its great-circle distance to the
	// incident in kilometers.
	Select(inc model.Incident, candidates []model.Unit) (model.Unit, float64, error)
}

// NearestSelector implements the nearest-first policy: a linear scan over
// the candidates returning the one with minimal great-circle distance.
// Ties go to the first candidate encountered.
type NearestSelector struct{}

func (NearestSelector) Select(inc model.Incident, candidates []model.Unit) (model.Unit, float64, error) {
	if len(candidates) == 0 {
		return model.Unit{}, 0, ErrNoCandidate
	}
	best := candidates[0]
	bestDist := geo.DistanceKm(inc.Lat, inc.Lon, best.Lat, best.Lon)
	for _, c := range candidates[1:] {
		d := geo.DistanceKm(inc.Lat, inc.Lon, c.Lat, c.Lon)
		if d < bestDist {
			best = c
			bestDist = d
		}
	}
	return best, bestDist, nil
}
