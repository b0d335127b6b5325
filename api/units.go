package api

import (
	"net/http"

	"github.com/dserban/dern/core/model"
	"github.com/dserban/dern/core/storage"
)

// NewUnitListHandler returns all units, optionally filtered with ?status=.
func NewUnitListHandler(units storage.UnitRepository) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := model.UnitStatus(r.URL.Query().Get("status"))
		list, err := units.List(r.Context(), status)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	})
}

// NewClosureListHandler returns all closure records.
func NewClosureListHandler(closures storage.ClosureRepository) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		list, err := closures.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	})
}
