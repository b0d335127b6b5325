// Package movement drives assigned units toward their targets. Every
// enroute unit is owned by exactly one task in the Pool; the task advances
// the unit's position on a fixed tick, persists and publishes each step,
// and hands the unit back to the idle pool after arrival.
package movement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dserban/dern/core/events"
	"github.com/dserban/dern/core/logger"
	"github.com/dserban/dern/core/model"
	"github.com/dserban/dern/core/storage"
	"github.com/dserban/dern/internal/eventbus"
)

// ErrTaskActive is returned by Start when a movement task is already
// driving the unit.
var ErrTaskActive = errors.New("movement task already active for unit")

// IncidentResolver marks incidents resolved when their unit arrives. It is
// satisfied by dispatch.Manager; the indirection avoids an import cycle and
// keeps the arrival path on the same status-update operation external
// callers use.
type IncidentResolver interface {
	UpdateIncidentStatus(ctx context.Context, incidentID string, status model.IncidentStatus) (model.Incident, error)
}

// Pool runs at most one movement task per unit ID.
type Pool struct {
	cfg      Config
	units    storage.UnitRepository
	bus      eventbus.EventBus
	log      logger.Logger
	resolver IncidentResolver

	// base bounds every task's lifetime. Tasks must not inherit the
	// caller's context: an assignment arriving over HTTP has to keep
	// moving long after its request context is cancelled.
	base       context.Context
	baseCancel context.CancelFunc

	mu     sync.Mutex
	active map[string]context.CancelFunc
	now    func() time.Time
	wg     sync.WaitGroup
}

// NewPool creates a Pool. The resolver is attached separately via
// SetResolver because the dispatch manager is constructed after the pool.
func NewPool(cfg Config, units storage.UnitRepository, bus eventbus.EventBus, log logger.Logger) *Pool {
	cfg.SetDefaults()
	base, cancel := context.WithCancel(context.Background())
	return &Pool{
		cfg:        cfg,
		units:      units,
		bus:        bus,
		log:        log,
		base:       base,
		baseCancel: cancel,
		active:     make(map[string]context.CancelFunc),
		now:        time.Now,
	}
}

// SetResolver configures the incident resolver used on arrival.
func (p *Pool) SetResolver(r IncidentResolver) {
	p.mu.Lock()
	p.resolver = r
	p.mu.Unlock()
}

// SetClock overrides the time source used for ETA updates, for tests.
func (p *Pool) SetClock(now func() time.Time) {
	p.mu.Lock()
	p.now = now
	p.mu.Unlock()
}

func (p *Pool) clock() func() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now
}

// Start launches the movement task for the unit. It fails with
// ErrTaskActive when a task for the same unit ID is still live, which
// guarantees that two simulations never race on one unit. The task is
// bound to the pool's lifetime, not to the caller.
func (p *Pool) Start(unitID string) error {
	if unitID == "" {
		return fmt.Errorf("movement: empty unit id")
	}
	p.mu.Lock()
	if _, ok := p.active[unitID]; ok {
		p.mu.Unlock()
		return ErrTaskActive
	}
	taskCtx, cancel := context.WithCancel(p.base)
	p.active[unitID] = cancel
	p.mu.Unlock()

	activeTasks.Inc()
	p.wg.Add(1)
	go func() {
		defer func() {
			p.mu.Lock()
			delete(p.active, unitID)
			p.mu.Unlock()
			cancel()
			activeTasks.Dec()
			p.wg.Done()
		}()
		p.run(taskCtx, unitID)
	}()
	return nil
}

// IsActive reports whether a task is currently driving the unit.
func (p *Pool) IsActive(unitID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.active[unitID]
	return ok
}

// Stop cancels the task for the unit, if any.
func (p *Pool) Stop(unitID string) {
	p.mu.Lock()
	cancel, ok := p.active[unitID]
	p.mu.Unlock()
	if ok {
		cancel()
	}
}

// Shutdown cancels every task and waits for all of them to return.
func (p *Pool) Shutdown() {
	p.baseCancel()
	p.wg.Wait()
}

// run is the per-unit tick loop. The loop owns the unit's position in
// memory; storage is re-read every tick only to observe external status
// changes or deletion, so a failed write never stalls the movement itself.
func (p *Pool) run(ctx context.Context, unitID string) {
	u, err := p.units.Get(ctx, unitID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			p.log.Errorf("movement %s: initial read: %v", unitID, err)
		}
		return
	}
	if u.Status != model.UnitEnroute || u.Target == nil {
		p.log.Warnf("movement %s: unit not enroute, task exits", unitID)
		return
	}

	ticker := time.NewTicker(p.cfg.TickInterval())
	defer ticker.Stop()

	now := p.clock()
	mode := "direct"
	if len(u.Route) > 0 {
		mode = "routed"
	}
	idx := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		stored, err := p.units.Get(ctx, unitID)
		if errors.Is(err, storage.ErrNotFound) {
			// Deleted externally mid-simulation.
			return
		}
		if err != nil {
			p.log.Warnf("movement %s: status read: %v", unitID, err)
			tickFailures.WithLabelValues("read").Inc()
			continue
		}
		if stored.Status != model.UnitEnroute {
			// Cooperative cancellation: an operator reassigned or
			// recalled the unit.
			return
		}

		ticksTotal.WithLabelValues(mode).Inc()
		var arrived bool
		if len(u.Route) > 0 {
			arrived, idx = p.advanceRouted(&u, idx)
		} else {
			arrived = p.advanceDirect(&u)
		}
		if arrived {
			p.finish(ctx, u)
			return
		}
		u.ETA = ETA(u, idx, now())
		p.persistAndPublish(ctx, u, "tick")
	}
}

// advanceRouted moves the unit toward its next waypoint. Within the arrival
// radius the unit snaps to the waypoint and the index advances; reaching the
// end of the route means arrival.
func (p *Pool) advanceRouted(u *model.Unit, idx int) (bool, int) {
	if idx >= len(u.Route) {
		return true, idx
	}
	wp := u.Route[idx]
	dist := distanceM(u.Lat, u.Lon, wp.Lat, wp.Lon)
	if dist <= p.cfg.ArrivalRadiusM {
		u.Lat, u.Lon = wp.Lat, wp.Lon
		idx++
		return idx >= len(u.Route), idx
	}
	p.step(u, wp.Lat, wp.Lon, dist)
	return false, idx
}

// advanceDirect moves the unit straight toward its target.
func (p *Pool) advanceDirect(u *model.Unit) bool {
	dist := distanceM(u.Lat, u.Lon, u.Target.Lat, u.Target.Lon)
	if dist <= p.cfg.ArrivalRadiusM {
		return true
	}
	p.step(u, u.Target.Lat, u.Target.Lon, dist)
	return false
}

// step moves the unit a tick's worth of travel toward (lat, lon) by linear
// interpolation, capped at the full remaining distance.
func (p *Pool) step(u *model.Unit, lat, lon, dist float64) {
	speed := u.SpeedKmh
	if speed <= 0 {
		speed = p.cfg.DefaultSpeedKmh
	}
	stepM := (speed / 3.6) * p.cfg.TickInterval().Seconds()
	frac := stepM / dist
	if frac > 1 {
		frac = 1
	}
	u.Lat += (lat - u.Lat) * frac
	u.Lon += (lon - u.Lon) * frac
}

// finish snaps the unit onto its target, announces the arrival, resolves
// the incident and releases the unit after the grace delay.
func (p *Pool) finish(ctx context.Context, u model.Unit) {
	incidentID := u.AssignedIncident
	u.Lat, u.Lon = u.Target.Lat, u.Target.Lon
	u.Status = model.UnitArrived
	u.ETA = nil
	p.persistAndPublish(ctx, u, "arrival")
	arrivalsTotal.Inc()
	p.log.Infof("unit %s arrived at incident %s", u.ID, incidentID)

	p.mu.Lock()
	resolver := p.resolver
	p.mu.Unlock()
	if resolver != nil && incidentID != "" {
		if _, err := resolver.UpdateIncidentStatus(ctx, incidentID, model.StatusResolved); err != nil {
			p.log.Errorf("movement %s: resolve incident %s: %v", u.ID, incidentID, err)
		}
	}

	select {
	case <-ctx.Done():
		// Cancelled mid-grace: release immediately rather than leave
		// the unit stranded in the arrived state.
	case <-time.After(p.cfg.ReleaseDelay()):
	}

	stored, err := p.units.Get(ctx, u.ID)
	if err != nil {
		return
	}
	stored.Status = model.UnitIdle
	stored.Target = nil
	stored.Route = nil
	stored.ETA = nil
	stored.AssignedIncident = ""
	p.persistAndPublish(ctx, stored, "release")
	p.log.Infof("unit %s released to idle pool", u.ID)
}

// persistAndPublish writes the unit and announces the post-write state.
// Both steps are best effort per tick; failures are logged and the
// simulation moves on.
func (p *Pool) persistAndPublish(ctx context.Context, u model.Unit, stage string) {
	if err := p.units.Save(ctx, u); err != nil {
		p.log.Warnf("movement %s: %s save: %v", u.ID, stage, err)
		tickFailures.WithLabelValues(stage).Inc()
	}
	if p.bus != nil {
		p.bus.Publish(events.UnitUpdated(u))
	}
}
