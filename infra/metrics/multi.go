package metrics

import (
	"errors"

	coremetrics "github.com/dserban/dern/core/metrics"
)

// MultiSink fans out every record to a list of sinks, collecting errors.
type MultiSink struct {
	sinks []coremetrics.Sink
}

// NewMultiSink combines the given sinks into one.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) RecordIncident(ev coremetrics.IncidentEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordIncident(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordUnit(ev coremetrics.UnitEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordUnit(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordClosure(ev coremetrics.ClosureEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordClosure(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
