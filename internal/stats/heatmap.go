package stats

import (
	"fmt"
	"math"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/danijoo/adaptiveumbrella/internal/cvgrid"
)

// pmfGridXYZ adapts a PMF grid to plotter.GridXYZ. Unknown (+Inf) cells are
// drawn at the top of the energy scale so sampled basins stand out.
type pmfGridXYZ struct {
	defs    cvgrid.Defs
	pmf     *cvgrid.Grid
	ceiling float64
}

func newPMFGridXYZ(defs cvgrid.Defs, pmf *cvgrid.Grid) pmfGridXYZ {
	ceiling := pmf.MinFinite()
	nx, ny := pmf.Shape()
	for ix := 0; ix < nx; ix++ {
		for iy := 0; iy < ny; iy++ {
			v := pmf.At(ix, iy)
			if !math.IsInf(v, 0) && !math.IsNaN(v) && v > ceiling {
				ceiling = v
			}
		}
	}
	if math.IsInf(ceiling, 0) {
		ceiling = 0
	}
	return pmfGridXYZ{defs: defs, pmf: pmf, ceiling: ceiling}
}

func (g pmfGridXYZ) Dims() (c, r int) { return g.pmf.Shape() }

func (g pmfGridXYZ) Z(c, r int) float64 {
	v := g.pmf.At(c, r)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return g.ceiling
	}
	return v
}

func (g pmfGridXYZ) X(c int) float64 { return g.defs[0].Lambda(c) }
func (g pmfGridXYZ) Y(r int) float64 { return g.defs[1].Lambda(r) }

// RenderPMFHeatmap writes a PNG heatmap of the PMF surface for one
// iteration and returns the file path.
func RenderPMFHeatmap(runDir string, iteration int, defs cvgrid.Defs, pmf *cvgrid.Grid) (string, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("PMF surface, iteration %d", iteration)
	p.X.Label.Text = "lambda x"
	p.Y.Label.Text = "lambda y"

	h := plotter.NewHeatMap(newPMFGridXYZ(defs, pmf), palette.Heat(64, 1))
	p.Add(h)

	path := filepath.Join(runDir, fmt.Sprintf("pmf_%d.png", iteration))
	if err := p.Save(6*vg.Inch, 5*vg.Inch, path); err != nil {
		return "", fmt.Errorf("render pmf heatmap: %w", err)
	}
	return path, nil
}
