// Package metrics defines the sink interfaces used to record state-change
// events for observability. Implementations live in infra/metrics and can
// be combined with a MultiSink.
package metrics

import (
	"time"

	"github.com/dserban/dern/core/model"
)

// IncidentEvent is a snapshot of an incident after a write.
type IncidentEvent struct {
	Incident model.Incident
	Time     time.Time
}

// UnitEvent is a snapshot of a unit after a write.
type UnitEvent struct {
	Unit model.Unit
	Time time.Time
}

// ClosureEvent records the creation of a closure.
type ClosureEvent struct {
	Closure model.Closure
	Time    time.Time
}

// Sink records state-change events for observability purposes.
type Sink interface {
	RecordIncident(ev IncidentEvent) error
	RecordUnit(ev UnitEvent) error
	RecordClosure(ev ClosureEvent) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordIncident(IncidentEvent) error { return nil }
func (NopSink) RecordUnit(UnitEvent) error         { return nil }
func (NopSink) RecordClosure(ClosureEvent) error   { return nil }

// Config defines settings for metrics sinks.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    string `json:"prometheus_port"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.PrometheusPort == "" {
		c.PrometheusPort = "9090"
	}
}
