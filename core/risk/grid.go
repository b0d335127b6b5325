// Package risk bins incident history into a spatial grid and derives
// normalized hotspot scores for map overlays. Aggregation is stateless:
// every call recomputes the surface from the points it is given.
package risk

import (
	"fmt"
	"math"
	"time"
)

// metersPerDegLat is the flat-earth approximation used to size grid cells.
// Longitude degrees shrink with cos(latitude); both conversions are local
// to the grid center.
const metersPerDegLat = 111320.0

// Params describes one aggregation request. Now is explicit so identical
// inputs always produce identical output.
type Params struct {
	CenterLat   float64   `json:"center_lat"`
	CenterLon   float64   `json:"center_lon"`
	HalfExtentKm float64  `json:"half_extent_km"`
	CellSizeM   float64   `json:"cell_size_m"`
	WindowHours float64   `json:"window_hours"`
	Now         time.Time `json:"now"`
}

// SetDefaults fills unset fields with the service defaults.
func (p *Params) SetDefaults() {
	if p.HalfExtentKm == 0 {
		p.HalfExtentKm = 5
	}
	if p.CellSizeM == 0 {
		p.CellSizeM = 500
	}
	if p.WindowHours == 0 {
		p.WindowHours = 24
	}
	if p.Now.IsZero() {
		p.Now = time.Now()
	}
}

// Validate checks the request geometry.
func (p Params) Validate() error {
	if p.HalfExtentKm <= 0 {
		return fmt.Errorf("half_extent_km must be positive")
	}
	if p.CellSizeM <= 0 {
		return fmt.Errorf("cell_size_m must be positive")
	}
	if p.WindowHours <= 0 {
		return fmt.Errorf("window_hours must be positive")
	}
	return nil
}

// Point is one historical incident location.
type Point struct {
	Lat float64
	Lon float64
	At  time.Time
}

// Cell is one bin of the risk surface. Corners trace the cell's geographic
// polygon as lon/lat pairs in ring order.
type Cell struct {
	I, J      int           `json:"-"`
	Count     int           `json:"count"`
	Weight    float64       `json:"weight"`
	Score     float64       `json:"score"`
	CenterLat float64       `json:"center_lat"`
	CenterLon float64       `json:"center_lon"`
	Corners   [4][2]float64 `json:"-"`
}

// Grid is the aggregated risk surface.
type Grid struct {
	Params       Params
	CellsPerSide int
	OriginLat    float64
	OriginLon    float64
	LatStepDeg   float64
	LonStepDeg   float64
	Cells        []Cell
}

// ComputeGrid bins the points into a square grid centered on the request
// and scores each cell by temporally weighted density, normalized against
// the heaviest cell.
func ComputeGrid(p Params, points []Point) (Grid, error) {
	p.SetDefaults()
	if err := p.Validate(); err != nil {
		return Grid{}, err
	}

	halfExtentM := p.HalfExtentKm * 1000
	n := int(math.Round(2 * halfExtentM / p.CellSizeM))
	if n < 1 {
		n = 1
	}
	latStep := p.CellSizeM / metersPerDegLat
	lonScale := math.Cos(p.CenterLat * math.Pi / 180)
	if lonScale < 1e-6 {
		lonScale = 1e-6
	}
	lonStep := p.CellSizeM / (metersPerDegLat * lonScale)
	originLat := p.CenterLat - float64(n)/2*latStep
	originLon := p.CenterLon - float64(n)/2*lonStep

	counts := make([]int, n*n)
	weights := make([]float64, n*n)
	for _, pt := range points {
		i := int(math.Floor((pt.Lat - originLat) / latStep))
		j := int(math.Floor((pt.Lon - originLon) / lonStep))
		if i < 0 || i >= n || j < 0 || j >= n {
			continue
		}
		age := p.Now.Sub(pt.At).Hours()
		if age < 0 {
			age = 0
		}
		recency := (p.WindowHours - age) / p.WindowHours
		if recency < 0 {
			recency = 0
		}
		// Points older than the window still carry a baseline weight
		// of 1; they fade, they are not discarded.
		counts[i*n+j]++
		weights[i*n+j] += 1 + recency
	}

	maxWeight := 0.0
	for _, w := range weights {
		if w > maxWeight {
			maxWeight = w
		}
	}

	cells := make([]Cell, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			lat0 := originLat + float64(i)*latStep
			lon0 := originLon + float64(j)*lonStep
			score := 0.0
			if maxWeight > 0 {
				score = weights[i*n+j] / maxWeight
			}
			cells = append(cells, Cell{
				I:         i,
				J:         j,
				Count:     counts[i*n+j],
				Weight:    weights[i*n+j],
				Score:     score,
				CenterLat: lat0 + latStep/2,
				CenterLon: lon0 + lonStep/2,
				Corners: [4][2]float64{
					{lon0, lat0},
					{lon0 + lonStep, lat0},
					{lon0 + lonStep, lat0 + latStep},
					{lon0, lat0 + latStep},
				},
			})
		}
	}
	return Grid{
		Params:       p,
		CellsPerSide: n,
		OriginLat:    originLat,
		OriginLon:    originLon,
		LatStepDeg:   latStep,
		LonStepDeg:   lonStep,
		Cells:        cells,
	}, nil
}

// NonEmpty returns only the cells that accumulated at least one point, for
// centroid-mode output.
func (g Grid) NonEmpty() []Cell {
	res := make([]Cell, 0, len(g.Cells))
	for _, c := range g.Cells {
		if c.Count > 0 {
			res = append(res, c)
		}
	}
	return res
}

// cellAt returns the cell at (i, j). Cells are stored row-major.
func (g Grid) cellAt(i, j int) Cell {
	return g.Cells[i*g.CellsPerSide+j]
}
