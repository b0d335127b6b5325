package risk

import (
	"gonum.org/v1/gonum/stat"
)

// Cluster is a maximal 8-connected group of non-empty grid cells merged
// into a single hotspot.
type Cluster struct {
	Cells       int     `json:"cells"`
	Count       int     `json:"count"`
	Weight      float64 `json:"weight"`
	Score       float64 `json:"score"`
	CentroidLat float64 `json:"centroid_lat"`
	CentroidLon float64 `json:"centroid_lon"`
}

// ComputeCentroids builds the grid and returns only its occupied cells,
// for point-style overlays.
func ComputeCentroids(p Params, points []Point) ([]Cell, error) {
	grid, err := ComputeGrid(p, points)
	if err != nil {
		return nil, err
	}
	return grid.NonEmpty(), nil
}

// ComputeClusters builds the grid and merges adjacent non-empty cells via
// 8-connected flood fill. Cluster scores are normalized against the
// heaviest cluster, independently of per-cell scores.
func ComputeClusters(p Params, points []Point) ([]Cluster, error) {
	grid, err := ComputeGrid(p, points)
	if err != nil {
		return nil, err
	}
	return grid.Clusters(), nil
}

// Clusters merges the grid's non-empty cells into hotspot centroids.
func (g Grid) Clusters() []Cluster {
	n := g.CellsPerSide
	visited := make([]bool, n*n)
	var clusters []Cluster

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if visited[i*n+j] || g.cellAt(i, j).Count == 0 {
				continue
			}
			members := g.floodFill(i, j, visited)
			clusters = append(clusters, g.summarize(members))
		}
	}

	maxWeight := 0.0
	for _, c := range clusters {
		if c.Weight > maxWeight {
			maxWeight = c.Weight
		}
	}
	for i := range clusters {
		if maxWeight > 0 {
			clusters[i].Score = clusters[i].Weight / maxWeight
		}
	}
	return clusters
}

// floodFill collects every non-empty cell 8-connected to (i, j), marking
// them visited.
func (g Grid) floodFill(i, j int, visited []bool) []Cell {
	n := g.CellsPerSide
	stack := [][2]int{{i, j}}
	visited[i*n+j] = true
	var members []Cell
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		members = append(members, g.cellAt(cur[0], cur[1]))
		for di := -1; di <= 1; di++ {
			for dj := -1; dj <= 1; dj++ {
				if di == 0 && dj == 0 {
					continue
				}
				ni, nj := cur[0]+di, cur[1]+dj
				if ni < 0 || ni >= n || nj < 0 || nj >= n {
					continue
				}
				if visited[ni*n+nj] || g.cellAt(ni, nj).Count == 0 {
					continue
				}
				visited[ni*n+nj] = true
				stack = append(stack, [2]int{ni, nj})
			}
		}
	}
	return members
}

// summarize aggregates member cells into one cluster. The centroid is the
// weight-weighted mean of the member cell centers.
func (g Grid) summarize(members []Cell) Cluster {
	lats := make([]float64, len(members))
	lons := make([]float64, len(members))
	ws := make([]float64, len(members))
	count := 0
	weight := 0.0
	for i, c := range members {
		lats[i] = c.CenterLat
		lons[i] = c.CenterLon
		ws[i] = c.Weight
		count += c.Count
		weight += c.Weight
	}
	return Cluster{
		Cells:       len(members),
		Count:       count,
		Weight:      weight,
		CentroidLat: stat.Mean(lats, ws),
		CentroidLon: stat.Mean(lons, ws),
	}
}
