package simulator

import "fmt"

// Config drives the synthetic incident generator.
type Config struct {
	// Topic overrides the ingestion topic; empty reuses the MQTT section.
	Topic string `json:"topic"`
	// IntervalMS is the publish period in milliseconds.
	IntervalMS int `json:"interval_ms"`
	// CenterLat/CenterLon anchor the generated coordinates.
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`
	// SpreadLat/SpreadLon bound the random offset in degrees.
	SpreadLat float64 `json:"spread_lat"`
	SpreadLon float64 `json:"spread_lon"`
	// Seed makes the stream reproducible when non-zero.
	Seed int64 `json:"seed"`
}

// SetDefaults centers the generator on Cluj-Napoca, matching the demo
// deployments this service grew out of.
func (c *Config) SetDefaults() {
	if c.IntervalMS == 0 {
		c.IntervalMS = 3000
	}
	if c.CenterLat == 0 {
		c.CenterLat = 46.7667
	}
	if c.CenterLon == 0 {
		c.CenterLon = 23.6
	}
	if c.SpreadLat == 0 {
		c.SpreadLat = 0.02
	}
	if c.SpreadLon == 0 {
		c.SpreadLon = 0.03
	}
}

// Validate checks the generator parameters.
func (c Config) Validate() error {
	if c.IntervalMS < 0 {
		return fmt.Errorf("interval_ms must not be negative")
	}
	if c.SpreadLat < 0 || c.SpreadLon < 0 {
		return fmt.Errorf("spread must not be negative")
	}
	return nil
}
