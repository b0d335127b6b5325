// Package api exposes the HTTP surface: incident and unit queries,
// assignment and status operations, risk overlays and the live event
// stream. Handlers are thin adapters over the core packages.
package api

import (
	"net/http"

	"github.com/dserban/dern/core/dispatch"
	"github.com/dserban/dern/core/logger"
	"github.com/dserban/dern/core/storage"
	"github.com/dserban/dern/internal/eventbus"
)

// Deps bundles everything the HTTP layer needs.
type Deps struct {
	Manager   *dispatch.Manager
	Incidents storage.IncidentRepository
	Units     storage.UnitRepository
	Closures  storage.ClosureRepository
	Bus       eventbus.EventBus
	Log       logger.Logger
}

// NewRouter assembles the HTTP routes.
func NewRouter(d Deps) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /api/incidents", NewIncidentListHandler(d.Incidents))
	mux.Handle("POST /api/incidents/{id}/assign", NewAssignHandler(d.Manager, d.Log))
	mux.Handle("POST /api/incidents/{id}/status", NewStatusHandler(d.Manager))
	mux.Handle("GET /api/units", NewUnitListHandler(d.Units))
	mux.Handle("GET /api/closures", NewClosureListHandler(d.Closures))
	mux.Handle("GET /api/risk/grid", NewRiskHandler(d.Incidents, riskModeGrid))
	mux.Handle("GET /api/risk/centroids", NewRiskHandler(d.Incidents, riskModeCentroids))
	mux.Handle("GET /api/risk/clusters", NewRiskHandler(d.Incidents, riskModeClusters))
	mux.Handle("GET /stream/incidents", NewStreamHandler(d.Bus, d.Log))
	return mux
}
