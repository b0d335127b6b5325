// Package dispatch assigns response units to incidents and owns the
// incident lifecycle operations. Selection policy, movement simulation and
// persistence are injected so the orchestration stays testable.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dserban/dern/core/events"
	"github.com/dserban/dern/core/logger"
	"github.com/dserban/dern/core/model"
	"github.com/dserban/dern/core/movement"
	"github.com/dserban/dern/core/storage"
	"github.com/dserban/dern/internal/eventbus"
)

// ErrUnitBusy is returned when the chosen unit is already enroute or has a
// live movement task.
var ErrUnitBusy = errors.New("unit already assigned")

// ErrInvalidStatus is returned for a status outside the lifecycle vocabulary.
var ErrInvalidStatus = errors.New("invalid incident status")

// Config holds assignment tunables.
type Config struct {
	// StartOffsetDeg is the deterministic offset (degrees, applied to both
	// axes) used to place a unit near the incident when the caller gives
	// no start hint.
	StartOffsetDeg float64 `json:"start_offset_deg"`
	// DefaultSpeedKmh is applied when neither the assignment nor the unit
	// record carries a speed.
	DefaultSpeedKmh float64 `json:"default_speed_kmh"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.StartOffsetDeg == 0 {
		c.StartOffsetDeg = 0.01
	}
	if c.DefaultSpeedKmh == 0 {
		c.DefaultSpeedKmh = 40
	}
}

// AssignOptions carries caller hints for one assignment.
type AssignOptions struct {
	// Candidates is the pool to select from. When empty, all idle units
	// are considered.
	Candidates []model.Unit
	// Start places the unit before the simulation begins. Without it the
	// unit starts at a small deterministic offset from the incident.
	Start *model.Target
	// SpeedKmh overrides the configured default travel speed.
	SpeedKmh float64
	// Route is an optional precomputed path from a routing collaborator,
	// a JSON array of [lon, lat] pairs. An unparseable route degrades to
	// straight-line interpolation.
	Route json.RawMessage
}

// TaskStarter launches movement tasks; implemented by movement.Pool. Tasks
// outlive the assignment call that starts them.
type TaskStarter interface {
	Start(unitID string) error
	IsActive(unitID string) bool
}

// Manager coordinates assignment and incident lifecycle updates.
type Manager struct {
	incidents storage.IncidentRepository
	units     storage.UnitRepository
	closures  storage.ClosureRepository
	selector  Selector
	tasks     TaskStarter
	bus       eventbus.EventBus
	log       logger.Logger
	cfg       Config
	now       func() time.Time
}

// NewManager creates a Manager.
func NewManager(cfg Config, incidents storage.IncidentRepository, units storage.UnitRepository, closures storage.ClosureRepository, sel Selector, tasks TaskStarter, bus eventbus.EventBus, log logger.Logger) (*Manager, error) {
	if incidents == nil || units == nil || closures == nil || sel == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewManager")
	}
	cfg.SetDefaults()
	return &Manager{
		incidents: incidents,
		units:     units,
		closures:  closures,
		selector:  sel,
		tasks:     tasks,
		bus:       bus,
		log:       log,
		cfg:       cfg,
		now:       time.Now,
	}, nil
}

// SetClock overrides the time source, for tests.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// AssignUnit picks the nearest assignable unit for the incident, moves both
// records into their assigned states, persists and publishes them, and
// starts exactly one movement task for the unit.
func (m *Manager) AssignUnit(ctx context.Context, incidentID string, opts AssignOptions) (model.Incident, model.Unit, error) {
	inc, err := m.incidents.Get(ctx, incidentID)
	if err != nil {
		assignmentFailures.WithLabelValues("incident_not_found").Inc()
		return model.Incident{}, model.Unit{}, fmt.Errorf("incident %s: %w", incidentID, err)
	}

	pool := opts.Candidates
	if len(pool) == 0 {
		if pool, err = m.units.List(ctx, model.UnitIdle); err != nil {
			return model.Incident{}, model.Unit{}, fmt.Errorf("list idle units: %w", err)
		}
	}
	unit, distKm, err := m.selector.Select(inc, pool)
	if err != nil {
		assignmentFailures.WithLabelValues("no_candidate").Inc()
		return model.Incident{}, model.Unit{}, err
	}
	if unit.Status == model.UnitEnroute || (m.tasks != nil && m.tasks.IsActive(unit.ID)) {
		assignmentFailures.WithLabelValues("unit_busy").Inc()
		return model.Incident{}, model.Unit{}, fmt.Errorf("unit %s: %w", unit.ID, ErrUnitBusy)
	}
	prevInc, prevUnit := inc, unit

	now := m.now()
	unit.Status = model.UnitEnroute
	unit.Target = &model.Target{Lat: inc.Lat, Lon: inc.Lon}
	unit.AssignedIncident = inc.ID
	if opts.Start != nil {
		unit.Lat, unit.Lon = opts.Start.Lat, opts.Start.Lon
	} else {
		unit.Lat = inc.Lat + m.cfg.StartOffsetDeg
		unit.Lon = inc.Lon + m.cfg.StartOffsetDeg
	}
	switch {
	case opts.SpeedKmh > 0:
		unit.SpeedKmh = opts.SpeedKmh
	case unit.SpeedKmh <= 0:
		unit.SpeedKmh = m.cfg.DefaultSpeedKmh
	}
	unit.Route = model.ParseRoute(opts.Route)
	unit.ETA = movement.ETA(unit, 0, now)

	inc.Status = model.StatusAssigned
	inc.AssignedUnit = unit.Name
	if inc.AssignedUnit == "" {
		inc.AssignedUnit = unit.ID
	}
	inc.UpdatedAt = now

	if err := m.units.Save(ctx, unit); err != nil {
		return model.Incident{}, model.Unit{}, fmt.Errorf("save unit %s: %w", unit.ID, err)
	}
	if err := m.incidents.Save(ctx, inc); err != nil {
		return model.Incident{}, model.Unit{}, fmt.Errorf("save incident %s: %w", inc.ID, err)
	}
	m.publish(events.UnitUpdated(unit))
	m.publish(events.IncidentUpdated(inc))

	if m.tasks != nil {
		if err := m.tasks.Start(unit.ID); err != nil {
			assignmentFailures.WithLabelValues("task_start").Inc()
			m.rollbackAssignment(ctx, prevInc, prevUnit)
			return model.Incident{}, model.Unit{}, fmt.Errorf("start movement for %s: %w", unit.ID, err)
		}
	}

	assignmentsTotal.WithLabelValues(inc.Type).Inc()
	assignmentDistance.WithLabelValues(inc.Type).Observe(distKm)
	m.log.Infof("assigned unit %s to incident %s (%.2f km)", unit.ID, inc.ID, distKm)
	return inc, unit, nil
}

// rollbackAssignment restores the pre-assignment records after a failed
// task start, so storage never holds an enroute unit with no driving task.
func (m *Manager) rollbackAssignment(ctx context.Context, inc model.Incident, unit model.Unit) {
	if err := m.units.Save(ctx, unit); err != nil {
		m.log.Errorf("rollback unit %s: %v", unit.ID, err)
	} else {
		m.publish(events.UnitUpdated(unit))
	}
	if err := m.incidents.Save(ctx, inc); err != nil {
		m.log.Errorf("rollback incident %s: %v", inc.ID, err)
	} else {
		m.publish(events.IncidentUpdated(inc))
	}
}

// UpdateIncidentStatus overwrites the incident status and publishes the
// result. The repository hands back the latest version, so when duplicates
// by ID exist the update never targets a stale one. Transitioning to
// resolved creates the incident's closure record exactly once.
func (m *Manager) UpdateIncidentStatus(ctx context.Context, incidentID string, status model.IncidentStatus) (model.Incident, error) {
	if !status.Valid() {
		return model.Incident{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	inc, err := m.incidents.Get(ctx, incidentID)
	if err != nil {
		return model.Incident{}, fmt.Errorf("incident %s: %w", incidentID, err)
	}
	inc.Status = status
	inc.UpdatedAt = m.now()
	if err := m.incidents.Save(ctx, inc); err != nil {
		return model.Incident{}, fmt.Errorf("save incident %s: %w", inc.ID, err)
	}
	m.publish(events.IncidentUpdated(inc))

	if status == model.StatusResolved {
		incidentsResolved.Inc()
		if err := m.ensureClosure(ctx, inc); err != nil {
			m.log.Errorf("closure for incident %s: %v", inc.ID, err)
		}
	}
	return inc, nil
}

// ensureClosure creates the closure record for a resolved incident unless
// one already exists.
func (m *Manager) ensureClosure(ctx context.Context, inc model.Incident) error {
	now := m.now()
	c := model.Closure{
		ID:         uuid.NewString(),
		IncidentID: inc.ID,
		Summary:    fmt.Sprintf("Incident %s (%s) resolved by unit %s", inc.ID, inc.Type, inc.AssignedUnit),
		Log: []model.ClosureLogEntry{
			{At: now, Note: "auto-resolved on unit arrival"},
		},
		CreatedAt: now,
	}
	created, err := m.closures.Create(ctx, c)
	if err != nil {
		return err
	}
	if created {
		closuresCreated.Inc()
		m.publish(events.ClosureCreated(c))
	}
	return nil
}

func (m *Manager) publish(e events.Event) {
	if m.bus != nil {
		m.bus.Publish(e)
	}
}
