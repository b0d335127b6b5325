package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dserban/dern/core/risk"
	"github.com/dserban/dern/core/storage"
)

type riskMode int

const (
	riskModeGrid riskMode = iota
	riskModeCentroids
	riskModeClusters
)

// geoJSON is a minimal FeatureCollection shape, enough for the map overlay.
type geoJSON struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string         `json:"type"`
	Geometry   geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type geometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

// NewRiskHandler aggregates incident history into the requested overlay.
// Query parameters: center_lat, center_lon, half_extent_km, cell_size_m,
// window_hours; unset values fall back to the service defaults.
func NewRiskHandler(incidents storage.IncidentRepository, mode riskMode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params := risk.Params{Now: time.Now()}
		q := r.URL.Query()
		var err error
		if params.CenterLat, err = queryFloat(q.Get("center_lat"), 46.7667); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid center_lat"})
			return
		}
		if params.CenterLon, err = queryFloat(q.Get("center_lon"), 23.6); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid center_lon"})
			return
		}
		if params.HalfExtentKm, err = queryFloat(q.Get("half_extent_km"), 0); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid half_extent_km"})
			return
		}
		if params.CellSizeM, err = queryFloat(q.Get("cell_size_m"), 0); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cell_size_m"})
			return
		}
		if params.WindowHours, err = queryFloat(q.Get("window_hours"), 0); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid window_hours"})
			return
		}

		history, err := incidents.History(r.Context(), time.Time{}, params.Now)
		if err != nil {
			writeError(w, err)
			return
		}
		points := make([]risk.Point, 0, len(history))
		for _, inc := range history {
			points = append(points, risk.Point{Lat: inc.Lat, Lon: inc.Lon, At: inc.ReceivedAt})
		}

		switch mode {
		case riskModeClusters:
			clusters, err := risk.ComputeClusters(params, points)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, clustersToGeoJSON(clusters))
		case riskModeCentroids:
			cells, err := risk.ComputeCentroids(params, points)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, cellsToGeoJSON(cells, true))
		default:
			grid, err := risk.ComputeGrid(params, points)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, cellsToGeoJSON(grid.Cells, false))
		}
	})
}

func queryFloat(raw string, def float64) (float64, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.ParseFloat(raw, 64)
}

// cellsToGeoJSON renders cells as their polygons, or as center points in
// centroid mode.
func cellsToGeoJSON(cells []risk.Cell, centroids bool) geoJSON {
	fc := geoJSON{Type: "FeatureCollection", Features: make([]feature, 0, len(cells))}
	for _, c := range cells {
		props := map[string]any{
			"count":  c.Count,
			"weight": c.Weight,
			"score":  c.Score,
		}
		var geom geometry
		if centroids {
			geom = geometry{Type: "Point", Coordinates: []float64{c.CenterLon, c.CenterLat}}
		} else {
			ring := [][]float64{
				{c.Corners[0][0], c.Corners[0][1]},
				{c.Corners[1][0], c.Corners[1][1]},
				{c.Corners[2][0], c.Corners[2][1]},
				{c.Corners[3][0], c.Corners[3][1]},
				{c.Corners[0][0], c.Corners[0][1]},
			}
			geom = geometry{Type: "Polygon", Coordinates: [][][]float64{ring}}
		}
		fc.Features = append(fc.Features, feature{Type: "Feature", Geometry: geom, Properties: props})
	}
	return fc
}

func clustersToGeoJSON(clusters []risk.Cluster) geoJSON {
	fc := geoJSON{Type: "FeatureCollection", Features: make([]feature, 0, len(clusters))}
	for _, c := range clusters {
		fc.Features = append(fc.Features, feature{
			Type:     "Feature",
			Geometry: geometry{Type: "Point", Coordinates: []float64{c.CentroidLon, c.CentroidLat}},
			Properties: map[string]any{
				"cells":  c.Cells,
				"count":  c.Count,
				"weight": c.Weight,
				"score":  c.Score,
			},
		})
	}
	return fc
}
