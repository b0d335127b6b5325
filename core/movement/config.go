package movement

import (
	"fmt"
	"time"
)

// Config holds the movement simulation knobs. The source deployments used
// diverging constants for arrival radius and default speed; a single
// canonical value of each is exposed here instead.
type Config struct {
	// TickIntervalMS is the simulation tick period in milliseconds.
	TickIntervalMS int `json:"tick_interval_ms"`
	// ArrivalRadiusM is the distance in meters under which a unit snaps
	// to its waypoint or target.
	ArrivalRadiusM float64 `json:"arrival_radius_m"`
	// DefaultSpeedKmh is used when an assignment carries no speed hint.
	DefaultSpeedKmh float64 `json:"default_speed_kmh"`
	// ReleaseDelayMS is the grace period in milliseconds between arrival
	// and the unit returning to the idle pool, so stream subscribers can
	// observe the arrived state.
	ReleaseDelayMS int `json:"release_delay_ms"`
}

// SetDefaults fills unset fields with the canonical defaults.
func (c *Config) SetDefaults() {
	if c.TickIntervalMS == 0 {
		c.TickIntervalMS = 1000
	}
	if c.ArrivalRadiusM == 0 {
		c.ArrivalRadiusM = 5
	}
	if c.DefaultSpeedKmh == 0 {
		c.DefaultSpeedKmh = 40
	}
	if c.ReleaseDelayMS == 0 {
		c.ReleaseDelayMS = 2000
	}
}

// Validate checks that the configured values are usable.
func (c Config) Validate() error {
	if c.TickIntervalMS < 0 {
		return fmt.Errorf("tick_interval_ms must not be negative")
	}
	if c.ArrivalRadiusM < 0 {
		return fmt.Errorf("arrival_radius_m must not be negative")
	}
	if c.DefaultSpeedKmh < 0 {
		return fmt.Errorf("default_speed_kmh must not be negative")
	}
	if c.ReleaseDelayMS < 0 {
		return fmt.Errorf("release_delay_ms must not be negative")
	}
	return nil
}

// TickInterval returns the tick period as a duration.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// ReleaseDelay returns the post-arrival grace period as a duration.
func (c Config) ReleaseDelay() time.Duration {
	return time.Duration(c.ReleaseDelayMS) * time.Millisecond
}
