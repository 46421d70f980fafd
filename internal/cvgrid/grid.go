package cvgrid

import (
	"fmt"
	"math"
)

// Grid is a dense row-major 2D array indexed by lambda bin pairs. It backs
// both the sample-count grid and the PMF surface; PMF cells with no known
// energy hold +Inf.
type Grid struct {
	nx, ny int
	cells  []float64
}

func NewGrid(nx, ny int) *Grid {
	if nx <= 0 || ny <= 0 {
		panic(fmt.Sprintf("cvgrid: invalid grid shape %dx%d", nx, ny))
	}
	return &Grid{nx: nx, ny: ny, cells: make([]float64, nx*ny)}
}

// NewGridFor allocates a grid shaped after the given axes.
func NewGridFor(defs Defs) *Grid {
	nx, ny := defs.Shape()
	return NewGrid(nx, ny)
}

func (g *Grid) Shape() (nx, ny int) { return g.nx, g.ny }

func (g *Grid) At(ix, iy int) float64 {
	return g.cells[ix*g.ny+iy]
}

func (g *Grid) Set(ix, iy int, v float64) {
	g.cells[ix*g.ny+iy] = v
}

func (g *Grid) Add(ix, iy int, v float64) {
	g.cells[ix*g.ny+iy] += v
}

func (g *Grid) InBounds(ix, iy int) bool {
	return ix >= 0 && ix < g.nx && iy >= 0 && iy < g.ny
}

// Fill sets every cell to v.
func (g *Grid) Fill(v float64) {
	for i := range g.cells {
		g.cells[i] = v
	}
}

// Clone returns an independent copy with the same shape and values.
func (g *Grid) Clone() *Grid {
	c := NewGrid(g.nx, g.ny)
	copy(c.cells, g.cells)
	return c
}

// CopyFrom overwrites this grid's values with src's. Shapes must match.
func (g *Grid) CopyFrom(src *Grid) error {
	if src.nx != g.nx || src.ny != g.ny {
		return fmt.Errorf("grid shape mismatch: %dx%d vs %dx%d", g.nx, g.ny, src.nx, src.ny)
	}
	copy(g.cells, src.cells)
	return nil
}

// Nonzero reports whether any cell differs from zero.
func (g *Grid) Nonzero() bool {
	for _, v := range g.cells {
		if v != 0 {
			return true
		}
	}
	return false
}

// CountFinite returns the number of cells holding a finite value.
func (g *Grid) CountFinite() int {
	n := 0
	for _, v := range g.cells {
		if !math.IsInf(v, 0) && !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// MinFinite returns the smallest finite cell value, or +Inf if none exists.
func (g *Grid) MinFinite() float64 {
	min := math.Inf(1)
	for _, v := range g.cells {
		if !math.IsInf(v, 0) && !math.IsNaN(v) && v < min {
			min = v
		}
	}
	return min
}
