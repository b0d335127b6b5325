package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// UnitStatus describes what a response unit is currently doing.
type UnitStatus string

const (
	UnitIdle    UnitStatus = "idle"
	UnitEnroute UnitStatus = "enroute"
	UnitArrived UnitStatus = "arrived"
)

// Waypoint is a single lon/lat pair on a precomputed route.
type Waypoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Target is the destination a unit is heading to.
type Target struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Unit represents a mobile responder resource (ambulance, fire truck).
// A unit is driven by at most one movement task at a time; the movement
// pool enforces this per unit ID.
type Unit struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Status           UnitStatus `json:"status"`
	Lat              float64    `json:"lat"`
	Lon              float64    `json:"lon"`
	Target           *Target    `json:"target,omitempty"`
	SpeedKmh         float64    `json:"speed_kmh"`
	ETA              *time.Time `json:"eta,omitempty"`
	Route            []Waypoint `json:"route,omitempty"`
	AssignedIncident string     `json:"assigned_incident,omitempty"`
}

// Validate checks the unit state invariant: a unit is enroute if and only if
// it has both a target and an assigned incident, and idle implies neither.
func (u Unit) Validate() error {
	switch u.Status {
	case UnitEnroute:
		if u.Target == nil || u.AssignedIncident == "" {
			return fmt.Errorf("unit %s: enroute requires target and assigned incident", u.ID)
		}
	case UnitIdle:
		if u.Target != nil || u.AssignedIncident != "" {
			return fmt.Errorf("unit %s: idle unit must not carry target or assignment", u.ID)
		}
	case UnitArrived:
	default:
		return fmt.Errorf("unit %s: unknown status %q", u.ID, u.Status)
	}
	return nil
}

// ParseRoute decodes an externally supplied route into waypoints. Routes come
// from a routing collaborator as a JSON array of [lon, lat] pairs. A route
// that cannot be parsed is treated as absent so the movement task falls back
// to straight-line interpolation.
func ParseRoute(raw []byte) []Waypoint {
	if len(raw) == 0 {
		return nil
	}
	var pairs [][]float64
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil
	}
	wps := make([]Waypoint, 0, len(pairs))
	for _, p := range pairs {
		if len(p) != 2 {
			return nil
		}
		wps = append(wps, Waypoint{Lon: p[0], Lat: p[1]})
	}
	if len(wps) == 0 {
		return nil
	}
	return wps
}
