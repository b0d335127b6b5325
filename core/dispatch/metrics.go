package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	assignmentsTotal   *prometheus.CounterVec
	assignmentFailures *prometheus.CounterVec
	assignmentDistance *prometheus.HistogramVec
	incidentsResolved  prometheus.Counter
	closuresCreated    prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, *prometheus.HistogramVec, prometheus.Counter, prometheus.Counter) {
	asn := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignments_total",
			Help: "Number of units assigned to incidents",
		},
		[]string{"incident_type"},
	)
	fail := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignment_failures_total",
			Help: "Number of failed assignment attempts",
		},
		[]string{"reason"},
	)
	dist := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assignment_distance_km",
			Help:    "Great-circle distance between the chosen unit and the incident",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 50},
		},
		[]string{"incident_type"},
	)
	res := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "incidents_resolved_total",
			Help: "Number of incidents marked resolved",
		},
	)
	clo := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "closures_created_total",
			Help: "Number of closure records created",
		},
	)
	return asn, fail, dist, res, clo
}

func init() {
	assignmentsTotal, assignmentFailures, assignmentDistance, incidentsResolved, closuresCreated = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(assignmentsTotal, assignmentFailures, assignmentDistance, incidentsResolved, closuresCreated)
}

// ResetMetrics reinitializes metric collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	assignmentsTotal, assignmentFailures, assignmentDistance, incidentsResolved, closuresCreated = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
