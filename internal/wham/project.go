package wham

import (
	"math"

	"github.com/danijoo/adaptiveumbrella/internal/cvgrid"
)

// Project maps the solver's output points onto the canonical lambda grid and
// returns the resulting PMF surface as a fresh grid; callers commit it to
// their own grid only on full success.
//
// The solver re-grids internally, so its points rarely coincide exactly with
// lambda centers. For every cell the candidate rows are those inside an open
// rectangular window of one lambda step per axis around the cell's
// coordinate; among the candidates the row with minimal Euclidean distance
// wins. Cells with no candidate become +Inf: the energy there is unknown,
// not zero. Exact distance ties are broken by lowest x, then lowest y.
func Project(defs cvgrid.Defs, rows []Row) *cvgrid.Grid {
	grid := cvgrid.NewGridFor(defs)
	stepX, stepY := defs[0].Step, defs[1].Step

	nx, ny := grid.Shape()
	for ix := 0; ix < nx; ix++ {
		for iy := 0; iy < ny; iy++ {
			lx, ly := defs.Lambdas(ix, iy)
			grid.Set(ix, iy, nearestEnergy(rows, lx, ly, stepX, stepY))
		}
	}
	return grid
}

// nearestEnergy returns the free energy of the row nearest to (lx, ly)
// within the tolerance window, or +Inf when the window is empty. The window
// itself gates inclusion; distance only ranks the rows that passed it.
func nearestEnergy(rows []Row, lx, ly, stepX, stepY float64) float64 {
	best := math.Inf(1)
	bestDist := math.Inf(1)
	var bestRow Row
	found := false

	for _, row := range rows {
		if math.Abs(row.X-lx) >= stepX || math.Abs(row.Y-ly) >= stepY {
			continue
		}
		dist := math.Hypot(lx-row.X, ly-row.Y)
		switch {
		case !found || dist < bestDist:
			found = true
			bestDist = dist
			bestRow = row
			best = row.E
		case dist == bestDist && (row.X < bestRow.X || (row.X == bestRow.X && row.Y < bestRow.Y)):
			bestRow = row
			best = row.E
		}
	}
	if !found {
		return math.Inf(1)
	}
	return best
}
