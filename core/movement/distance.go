package movement

import (
	"time"

	"github.com/dserban/dern/core/geo"
	"github.com/dserban/dern/core/model"
)

// distanceM is the meter-based great-circle distance used throughout the
// tick loop. The kilometer form uses a different Earth radius and must not
// appear on this path.
func distanceM(lat1, lon1, lat2, lon2 float64) float64 {
	return geo.DistanceMeters(lat1, lon1, lat2, lon2)
}

// RemainingMeters returns the distance left for the unit to travel: from its
// current position through every unvisited waypoint starting at idx, then to
// the target, or directly to the target when no route is attached.
func RemainingMeters(u model.Unit, idx int) float64 {
	if u.Target == nil {
		return 0
	}
	if len(u.Route) == 0 || idx >= len(u.Route) {
		return geo.DistanceMeters(u.Lat, u.Lon, u.Target.Lat, u.Target.Lon)
	}
	total := geo.DistanceMeters(u.Lat, u.Lon, u.Route[idx].Lat, u.Route[idx].Lon)
	for i := idx; i < len(u.Route)-1; i++ {
		total += geo.DistanceMeters(u.Route[i].Lat, u.Route[i].Lon, u.Route[i+1].Lat, u.Route[i+1].Lon)
	}
	last := u.Route[len(u.Route)-1]
	total += geo.DistanceMeters(last.Lat, last.Lon, u.Target.Lat, u.Target.Lon)
	return total
}

// ETA estimates the arrival time from the remaining distance and the unit's
// speed. It returns nil when the unit is stationary or has no target.
func ETA(u model.Unit, idx int, now time.Time) *time.Time {
	if u.Target == nil || u.SpeedKmh <= 0 {
		return nil
	}
	meters := RemainingMeters(u, idx)
	secs := meters / (u.SpeedKmh / 3.6)
	t := now.Add(time.Duration(secs * float64(time.Second)))
	return &t
}
