package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dserban/dern/core/dispatch"
	"github.com/dserban/dern/core/logger"
	"github.com/dserban/dern/core/model"
	"github.com/dserban/dern/core/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, dispatch.ErrNoCandidate),
		errors.Is(err, dispatch.ErrUnitBusy),
		errors.Is(err, dispatch.ErrInvalidStatus):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// NewIncidentListHandler returns the latest version of each incident,
// optionally filtered with ?status=.
func NewIncidentListHandler(incidents storage.IncidentRepository) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := model.IncidentStatus(r.URL.Query().Get("status"))
		if status != "" && !status.Valid() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status"})
			return
		}
		list, err := incidents.ListByStatus(r.Context(), status)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	})
}

// assignRequest carries optional caller hints for an assignment.
type assignRequest struct {
	Start    *model.Target   `json:"start,omitempty"`
	SpeedKmh float64         `json:"speed_kmh,omitempty"`
	Route    json.RawMessage `json:"route,omitempty"`
}

// NewAssignHandler dispatches the nearest idle unit to the incident.
func NewAssignHandler(mgr *dispatch.Manager, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		var req assignRequest
		// An empty body means no hints.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
		inc, unit, err := mgr.AssignUnit(r.Context(), id, dispatch.AssignOptions{
			Start:    req.Start,
			SpeedKmh: req.SpeedKmh,
			Route:    req.Route,
		})
		if err != nil {
			log.Warnf("assign incident %s: %v", id, err)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"incident": inc, "unit": unit})
	})
}

// statusRequest carries a lifecycle transition.
type statusRequest struct {
	Status model.IncidentStatus `json:"status"`
}

// NewStatusHandler overwrites the incident status.
func NewStatusHandler(mgr *dispatch.Manager) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		var req statusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
		inc, err := mgr.UpdateIncidentStatus(r.Context(), id, req.Status)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, inc)
	})
}
