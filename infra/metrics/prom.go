package metrics

import (
	coremetrics "github.com/dserban/dern/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records state-change events in Prometheus metrics.
type PromSink struct {
	incidents *prometheus.CounterVec
	units     *prometheus.CounterVec
	closures  prometheus.Counter
}

// NewPromSink registers event metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	incidents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "incident_events_total",
		Help: "Total number of incident state-change events",
	}, []string{"type", "status"})
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "unit_events_total",
		Help: "Total number of unit state-change events",
	}, []string{"status"})
	closures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "closure_events_total",
		Help: "Total number of closure records announced",
	})

	if err := reg.Register(incidents); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			incidents = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(units); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			units = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(closures); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			closures = are.ExistingCollector.(prometheus.Counter)
		} else {
			return nil, err
		}
	}
	return &PromSink{incidents: incidents, units: units, closures: closures}, nil
}

// RecordIncident increments the incident event counter.
func (s *PromSink) RecordIncident(ev coremetrics.IncidentEvent) error {
	s.incidents.WithLabelValues(ev.Incident.Type, string(ev.Incident.Status)).Inc()
	return nil
}

// RecordUnit increments the unit event counter.
func (s *PromSink) RecordUnit(ev coremetrics.UnitEvent) error {
	s.units.WithLabelValues(string(ev.Unit.Status)).Inc()
	return nil
}

// RecordClosure increments the closure counter.
func (s *PromSink) RecordClosure(coremetrics.ClosureEvent) error {
	s.closures.Inc()
	return nil
}
