package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dserban/dern/core/dispatch"
	"github.com/dserban/dern/core/model"
	"github.com/dserban/dern/core/movement"
	infralogger "github.com/dserban/dern/infra/logger"
	"github.com/dserban/dern/infra/storage"
	"github.com/dserban/dern/internal/eventbus"
)

// TestAssignOutlivesRequest drives an assignment through a real HTTP
// server with a live movement pool behind it. The simulation must keep
// ticking after the assign request's context is gone and carry the
// incident all the way to resolved.
func TestAssignOutlivesRequest(t *testing.T) {
	ctx := context.Background()
	incidents := storage.NewMemoryIncidentStore()
	units := storage.NewMemoryUnitStore()
	closures := storage.NewMemoryClosureStore()
	bus := eventbus.NewBuffered(256)

	pool := movement.NewPool(movement.Config{TickIntervalMS: 5, ArrivalRadiusM: 5, DefaultSpeedKmh: 40, ReleaseDelayMS: 10},
		units, bus, infralogger.NopLogger{})
	defer pool.Shutdown()
	mgr, err := dispatch.NewManager(dispatch.Config{}, incidents, units, closures,
		dispatch.NearestSelector{}, pool, bus, infralogger.NopLogger{})
	require.NoError(t, err)
	pool.SetResolver(mgr)

	mux := NewRouter(Deps{
		Manager:   mgr,
		Incidents: incidents,
		Units:     units,
		Closures:  closures,
		Bus:       bus,
		Log:       infralogger.NopLogger{},
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	require.NoError(t, incidents.Save(ctx, model.Incident{ID: "inc-1", Type: "medical", Lat: 46.7, Lon: 23.6, Severity: 4, Status: model.StatusNew}))
	require.NoError(t, units.Save(ctx, model.Unit{ID: "u1", Name: "Ambulance 1", Status: model.UnitIdle, Lat: 46.75, Lon: 23.65}))

	body, err := json.Marshal(map[string]any{"speed_kmh": 36000})
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/api/incidents/inc-1/assign", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var assigned struct {
		Incident model.Incident `json:"incident"`
		Unit     model.Unit     `json:"unit"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&assigned))
	require.Equal(t, model.StatusAssigned, assigned.Incident.Status)
	require.Equal(t, "u1", assigned.Unit.ID)

	// The handler has returned and its request context is dead. The
	// simulation still has to reach the incident and resolve it.
	require.Eventually(t, func() bool {
		inc, err := incidents.Get(ctx, "inc-1")
		return err == nil && inc.Status == model.StatusResolved
	}, 5*time.Second, 5*time.Millisecond, "simulation died with the request")

	require.Eventually(t, func() bool {
		u, err := units.Get(ctx, "u1")
		return err == nil && u.Status == model.UnitIdle
	}, 5*time.Second, 5*time.Millisecond, "unit never released after arrival")

	u, err := units.Get(ctx, "u1")
	require.NoError(t, err)
	require.Nil(t, u.Target)
	require.Empty(t, u.AssignedIncident)
	require.InDelta(t, 46.7, u.Lat, 1e-6)
	require.InDelta(t, 23.6, u.Lon, 1e-6)

	cl, err := closures.List(ctx)
	require.NoError(t, err)
	require.Len(t, cl, 1)
	require.Equal(t, "inc-1", cl[0].IncidentID)
}
