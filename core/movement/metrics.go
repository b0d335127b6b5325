package movement

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	activeTasks   prometheus.Gauge
	ticksTotal    *prometheus.CounterVec
	arrivalsTotal prometheus.Counter
	tickFailures  *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Gauge, *prometheus.CounterVec, prometheus.Counter, *prometheus.CounterVec) {
	active := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "movement_active_tasks",
			Help: "Number of live per-unit movement tasks",
		},
	)
	ticks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movement_ticks_total",
			Help: "Number of simulation ticks executed",
		},
		[]string{"mode"},
	)
	arrivals := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "movement_arrivals_total",
			Help: "Number of units that reached their target",
		},
	)
	failures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movement_tick_failures_total",
			Help: "Number of tick-level persistence or publish failures",
		},
		[]string{"stage"},
	)
	return active, ticks, arrivals, failures
}

func init() {
	activeTasks, ticksTotal, arrivalsTotal, tickFailures = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers movement metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(activeTasks, ticksTotal, arrivalsTotal, tickFailures)
}

// ResetMetrics reinitializes metric collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	activeTasks, ticksTotal, arrivalsTotal, tickFailures = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
