package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dserban/dern/core/events"
	"github.com/dserban/dern/core/model"
	corestorage "github.com/dserban/dern/core/storage"
	infralogger "github.com/dserban/dern/infra/logger"
	"github.com/dserban/dern/infra/storage"
	"github.com/dserban/dern/internal/eventbus"
)

type fakeTasks struct {
	started []string
	active  map[string]bool
	err     error
}

func (f *fakeTasks) Start(unitID string) error {
	if f.err != nil {
		return f.err
	}
	f.started = append(f.started, unitID)
	return nil
}

func (f *fakeTasks) IsActive(unitID string) bool { return f.active[unitID] }

type managerEnv struct {
	mgr       *Manager
	incidents *storage.MemoryIncidentStore
	units     *storage.MemoryUnitStore
	closures  *storage.MemoryClosureStore
	tasks     *fakeTasks
	bus       *eventbus.Bus
}

func newManagerEnv(t *testing.T) *managerEnv {
	t.Helper()
	env := &managerEnv{
		incidents: storage.NewMemoryIncidentStore(),
		units:     storage.NewMemoryUnitStore(),
		closures:  storage.NewMemoryClosureStore(),
		tasks:     &fakeTasks{active: map[string]bool{}},
		bus:       eventbus.NewBuffered(64),
	}
	mgr, err := NewManager(Config{}, env.incidents, env.units, env.closures, NearestSelector{}, env.tasks, env.bus, infralogger.NopLogger{})
	if err != nil {
		t.Fatal(err)
	}
	mgr.SetClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })
	env.mgr = mgr
	return env
}

func drain(ch <-chan events.Event) []events.Event {
	var out []events.Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestAssignUnitHappyPath(t *testing.T) {
	ctx := context.Background()
	env := newManagerEnv(t)
	sub := env.bus.Subscribe()

	if err := env.incidents.Save(ctx, model.Incident{ID: "inc-1", Type: "medical", Lat: 46.7667, Lon: 23.6, Severity: 3, Status: model.StatusNew}); err != nil {
		t.Fatal(err)
	}
	for _, u := range []model.Unit{
		{ID: "u-near", Name: "Ambulance 7", Status: model.UnitIdle, Lat: 46.78, Lon: 23.61},
		{ID: "u-far", Status: model.UnitIdle, Lat: 47.2, Lon: 23.9},
	} {
		if err := env.units.Save(ctx, u); err != nil {
			t.Fatal(err)
		}
	}

	inc, unit, err := env.mgr.AssignUnit(ctx, "inc-1", AssignOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if unit.ID != "u-near" {
		t.Fatalf("assigned %s, want u-near", unit.ID)
	}
	if unit.Status != model.UnitEnroute || unit.AssignedIncident != "inc-1" {
		t.Fatalf("unit not enroute on its incident: %+v", unit)
	}
	if unit.Target == nil || unit.Target.Lat != 46.7667 || unit.Target.Lon != 23.6 {
		t.Fatalf("unit target %+v, want incident location", unit.Target)
	}
	if unit.SpeedKmh != 40 {
		t.Fatalf("default speed not applied: %v", unit.SpeedKmh)
	}
	if unit.ETA == nil {
		t.Fatal("expected an ETA for a moving unit")
	}
	if err := unit.Validate(); err != nil {
		t.Fatalf("assigned unit violates state invariant: %v", err)
	}
	if inc.Status != model.StatusAssigned || inc.AssignedUnit != "Ambulance 7" {
		t.Fatalf("incident not assigned to the unit display name: %+v", inc)
	}

	storedInc, err := env.incidents.Get(ctx, "inc-1")
	if err != nil || storedInc.Status != model.StatusAssigned {
		t.Fatalf("incident not persisted assigned: %+v, %v", storedInc, err)
	}
	storedUnit, err := env.units.Get(ctx, "u-near")
	if err != nil || storedUnit.Status != model.UnitEnroute {
		t.Fatalf("unit not persisted enroute: %+v, %v", storedUnit, err)
	}

	if len(env.tasks.started) != 1 || env.tasks.started[0] != "u-near" {
		t.Fatalf("movement task starts = %v, want [u-near]", env.tasks.started)
	}

	evs := drain(sub)
	var kinds []events.Kind
	for _, ev := range evs {
		kinds = append(kinds, ev.Kind)
	}
	if len(evs) != 2 || kinds[0] != events.KindUnit || kinds[1] != events.KindIncident {
		t.Fatalf("published kinds %v, want [unit incident]", kinds)
	}
}

func TestAssignUnitStartHintAndExplicitCandidates(t *testing.T) {
	ctx := context.Background()
	env := newManagerEnv(t)

	if err := env.incidents.Save(ctx, model.Incident{ID: "inc-1", Type: "fire", Lat: 46.7, Lon: 23.5, Status: model.StatusNew}); err != nil {
		t.Fatal(err)
	}
	cand := model.Unit{ID: "u-ext", Status: model.UnitIdle, Lat: 46.71, Lon: 23.51}

	_, unit, err := env.mgr.AssignUnit(ctx, "inc-1", AssignOptions{
		Candidates: []model.Unit{cand},
		Start:      &model.Target{Lat: 46.75, Lon: 23.55},
		SpeedKmh:   72,
		Route:      []byte(`[[23.52, 46.72], [23.5, 46.7]]`),
	})
	if err != nil {
		t.Fatal(err)
	}
	if unit.ID != "u-ext" {
		t.Fatalf("candidate pool ignored: got %s", unit.ID)
	}
	if unit.Lat != 46.75 || unit.Lon != 23.55 {
		t.Fatalf("start hint ignored: at (%v,%v)", unit.Lat, unit.Lon)
	}
	if unit.SpeedKmh != 72 {
		t.Fatalf("speed override ignored: %v", unit.SpeedKmh)
	}
	if len(unit.Route) != 2 {
		t.Fatalf("route not attached: %+v", unit.Route)
	}
}

func TestAssignUnitOffsetStartWithoutHint(t *testing.T) {
	ctx := context.Background()
	env := newManagerEnv(t)

	if err := env.incidents.Save(ctx, model.Incident{ID: "inc-1", Lat: 46.7, Lon: 23.5, Status: model.StatusNew}); err != nil {
		t.Fatal(err)
	}
	_, unit, err := env.mgr.AssignUnit(ctx, "inc-1", AssignOptions{
		Candidates: []model.Unit{{ID: "u1", Status: model.UnitIdle}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if unit.Lat != 46.71 || unit.Lon != 23.51 {
		t.Fatalf("expected deterministic offset start, got (%v,%v)", unit.Lat, unit.Lon)
	}
}

func TestAssignUnitFailures(t *testing.T) {
	ctx := context.Background()
	env := newManagerEnv(t)

	_, _, err := env.mgr.AssignUnit(ctx, "missing", AssignOptions{})
	if !errors.Is(err, corestorage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing incident, got %v", err)
	}

	if err := env.incidents.Save(ctx, model.Incident{ID: "inc-1", Lat: 46.7, Lon: 23.5, Status: model.StatusNew}); err != nil {
		t.Fatal(err)
	}
	_, _, err = env.mgr.AssignUnit(ctx, "inc-1", AssignOptions{})
	if !errors.Is(err, ErrNoCandidate) {
		t.Fatalf("expected ErrNoCandidate with empty pool, got %v", err)
	}

	// A unit with a live movement task is rejected even if its stored
	// status says otherwise.
	env.tasks.active["u1"] = true
	_, _, err = env.mgr.AssignUnit(ctx, "inc-1", AssignOptions{
		Candidates: []model.Unit{{ID: "u1", Status: model.UnitIdle}},
	})
	if !errors.Is(err, ErrUnitBusy) {
		t.Fatalf("expected ErrUnitBusy for active task, got %v", err)
	}

	_, _, err = env.mgr.AssignUnit(ctx, "inc-1", AssignOptions{
		Candidates: []model.Unit{{ID: "u2", Status: model.UnitEnroute, Target: &model.Target{}, AssignedIncident: "other"}},
	})
	if !errors.Is(err, ErrUnitBusy) {
		t.Fatalf("expected ErrUnitBusy for enroute unit, got %v", err)
	}
}

func TestUpdateIncidentStatus(t *testing.T) {
	ctx := context.Background()
	env := newManagerEnv(t)

	if err := env.incidents.Save(ctx, model.Incident{ID: "inc-1", Status: model.StatusNew}); err != nil {
		t.Fatal(err)
	}

	inc, err := env.mgr.UpdateIncidentStatus(ctx, "inc-1", model.StatusAccepted)
	if err != nil {
		t.Fatal(err)
	}
	if inc.Status != model.StatusAccepted {
		t.Fatalf("status not applied: %+v", inc)
	}

	_, err = env.mgr.UpdateIncidentStatus(ctx, "inc-1", "escalated")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	_, err = env.mgr.UpdateIncidentStatus(ctx, "missing", model.StatusAccepted)
	if !errors.Is(err, corestorage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateIncidentStatusTargetsLatestVersion(t *testing.T) {
	ctx := context.Background()
	env := newManagerEnv(t)

	if err := env.incidents.Save(ctx, model.Incident{ID: "inc-1", Status: model.StatusNew, Severity: 1}); err != nil {
		t.Fatal(err)
	}
	if err := env.incidents.Save(ctx, model.Incident{ID: "inc-1", Status: model.StatusAssigned, Severity: 4, AssignedUnit: "u1"}); err != nil {
		t.Fatal(err)
	}

	inc, err := env.mgr.UpdateIncidentStatus(ctx, "inc-1", model.StatusResolved)
	if err != nil {
		t.Fatal(err)
	}
	if inc.Severity != 4 || inc.AssignedUnit != "u1" {
		t.Fatalf("update applied to a stale version: %+v", inc)
	}
}

func TestResolveCreatesClosureOnce(t *testing.T) {
	ctx := context.Background()
	env := newManagerEnv(t)
	sub := env.bus.Subscribe()

	if err := env.incidents.Save(ctx, model.Incident{ID: "inc-1", Type: "medical", Status: model.StatusAssigned, AssignedUnit: "Ambulance 7"}); err != nil {
		t.Fatal(err)
	}

	if _, err := env.mgr.UpdateIncidentStatus(ctx, "inc-1", model.StatusResolved); err != nil {
		t.Fatal(err)
	}
	if _, err := env.mgr.UpdateIncidentStatus(ctx, "inc-1", model.StatusResolved); err != nil {
		t.Fatal(err)
	}

	closures, err := env.closures.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(closures) != 1 {
		t.Fatalf("expected exactly one closure, got %d", len(closures))
	}
	c := closures[0]
	if c.IncidentID != "inc-1" || c.ID == "" {
		t.Fatalf("unexpected closure %+v", c)
	}
	if c.Summary != "Incident inc-1 (medical) resolved by unit Ambulance 7" {
		t.Fatalf("unexpected summary %q", c.Summary)
	}
	if len(c.Log) != 1 || c.Log[0].Note == "" {
		t.Fatalf("closure log missing: %+v", c.Log)
	}

	var closureEvents int
	for _, ev := range drain(sub) {
		if ev.Kind == events.KindClosure {
			closureEvents++
		}
	}
	if closureEvents != 1 {
		t.Fatalf("closure published %d times, want once", closureEvents)
	}
}

func TestAssignUnitRollsBackWhenTaskStartFails(t *testing.T) {
	ctx := context.Background()
	env := newManagerEnv(t)

	if err := env.incidents.Save(ctx, model.Incident{ID: "inc-1", Lat: 46.7, Lon: 23.5, Status: model.StatusNew}); err != nil {
		t.Fatal(err)
	}
	if err := env.units.Save(ctx, model.Unit{ID: "u1", Status: model.UnitIdle, Lat: 46.71, Lon: 23.51}); err != nil {
		t.Fatal(err)
	}
	sub := env.bus.Subscribe()
	env.tasks.err = errors.New("worker pool exhausted")

	_, _, err := env.mgr.AssignUnit(ctx, "inc-1", AssignOptions{})
	if err == nil {
		t.Fatal("expected the failed task start to surface")
	}

	// The stored records must read as if the assignment never happened.
	u, err := env.units.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if u.Status != model.UnitIdle || u.Target != nil || u.AssignedIncident != "" {
		t.Fatalf("unit left in a partial assignment: %+v", u)
	}
	inc, err := env.incidents.Get(ctx, "inc-1")
	if err != nil {
		t.Fatal(err)
	}
	if inc.Status != model.StatusNew || inc.AssignedUnit != "" {
		t.Fatalf("incident left in a partial assignment: %+v", inc)
	}

	// The bus carries the transient state and then the restored records,
	// so stream consumers converge on the rolled-back view.
	evs := drain(sub)
	if len(evs) != 4 {
		t.Fatalf("published %d events, want enroute pair plus rollback pair", len(evs))
	}
	lastUnit, ok := evs[2].Payload.(model.Unit)
	if !ok || lastUnit.Status != model.UnitIdle {
		t.Fatalf("rollback unit event missing: %+v", evs[2])
	}
	lastInc, ok := evs[3].Payload.(model.Incident)
	if !ok || lastInc.Status != model.StatusNew {
		t.Fatalf("rollback incident event missing: %+v", evs[3])
	}
}
