// Package cvgrid defines collective-variable axes and the dense 2D grids
// indexed by discretized lambda pairs.
package cvgrid

import (
	"fmt"
	"math"
	"strconv"
)

// CV describes one collective-variable axis: the lambda range it spans and
// the spacing between neighboring windows.
type CV struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

func (cv CV) Validate() error {
	if cv.Step <= 0 {
		return fmt.Errorf("cv step must be positive, got %g", cv.Step)
	}
	if cv.Min >= cv.Max {
		return fmt.Errorf("cv range is empty: min %g >= max %g", cv.Min, cv.Max)
	}
	return nil
}

// Bins returns the number of discrete lambda values on this axis, both
// endpoints included. The small epsilon keeps ranges that are an exact
// multiple of the step from losing their last bin to float rounding.
func (cv CV) Bins() int {
	return int(math.Floor((cv.Max-cv.Min)/cv.Step+1e-9)) + 1
}

// Lambda maps a bin index to its lambda value.
func (cv CV) Lambda(index int) float64 {
	return cv.Min + cv.Step*float64(index)
}

// Index maps a lambda value to the nearest bin index.
func (cv CV) Index(lambda float64) int {
	return int(math.Round((lambda - cv.Min) / cv.Step))
}

// Defs holds the two collective-variable axes of a 2D umbrella run,
// x first, y second.
type Defs [2]CV

func (d Defs) Validate() error {
	for i, cv := range d {
		if err := cv.Validate(); err != nil {
			return fmt.Errorf("cv %d: %w", i, err)
		}
	}
	return nil
}

// Shape returns the grid dimensions implied by the axes.
func (d Defs) Shape() (nx, ny int) {
	return d[0].Bins(), d[1].Bins()
}

// Lambdas converts an index pair to its coordinate pair.
func (d Defs) Lambdas(ix, iy int) (float64, float64) {
	return d[0].Lambda(ix), d[1].Lambda(iy)
}

// Indexes converts a coordinate pair to the nearest index pair.
func (d Defs) Indexes(lx, ly float64) (int, int) {
	return d[0].Index(lx), d[1].Index(ly)
}

// FormatLambda renders a lambda value the way it appears in window
// directory names and solver manifests.
func FormatLambda(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
