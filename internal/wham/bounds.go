package wham

import (
	"errors"

	"github.com/danijoo/adaptiveumbrella/internal/cvgrid"
)

// ErrNoSamples is returned when the sample grid holds no sampled frames at
// all, so no scan bounds can be derived.
var ErrNoSamples = errors.New("wham: sample grid has no nonzero cells")

// Bounds is the coordinate rectangle handed to the solver as its scan
// region.
type Bounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// ScanBounds derives the smallest rectangle that encloses every sampled
// window, then widens it by two lambda steps on each side so the solver's
// histogram does not clip edge windows. Index bounds are taken per axis
// independently (an axis-aligned box, not a hull).
func ScanBounds(samples *cvgrid.Grid, defs cvgrid.Defs) (Bounds, error) {
	if !samples.Nonzero() {
		return Bounds{}, ErrNoSamples
	}
	nx, ny := samples.Shape()
	minIX, minIY := -1, -1
	maxIX, maxIY := -1, -1
	for ix := 0; ix < nx; ix++ {
		for iy := 0; iy < ny; iy++ {
			if samples.At(ix, iy) == 0 {
				continue
			}
			if minIX == -1 || ix < minIX {
				minIX = ix
			}
			if ix > maxIX {
				maxIX = ix
			}
			if minIY == -1 || iy < minIY {
				minIY = iy
			}
			if iy > maxIY {
				maxIY = iy
			}
		}
	}
	minX, minY := defs.Lambdas(minIX, minIY)
	maxX, maxY := defs.Lambdas(maxIX, maxIY)
	return Bounds{
		MinX: minX - 2*defs[0].Step,
		MinY: minY - 2*defs[1].Step,
		MaxX: maxX + 2*defs[0].Step,
		MaxY: maxY + 2*defs[1].Step,
	}, nil
}
