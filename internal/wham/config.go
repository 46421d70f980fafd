// Package wham prepares input for the external wham-2d solver, invokes it,
// and projects its output back onto the canonical lambda-indexed PMF grid.
// The statistical WHAM computation itself lives entirely in the external
// program.
package wham

import (
	"errors"
	"fmt"
)

// DefaultExecutable is the solver binary looked up on PATH when the
// configuration names none.
const DefaultExecutable = "wham-2d"

// Config carries every solver parameter recognized by wham-2d, typed and
// validated up front instead of read out of a loose key/value map.
type Config struct {
	// Executable is the wham-2d binary to invoke.
	Executable string
	// Px and Py are the periodicity values passed through to the solver.
	Px float64
	Py float64
	// NumBinsX and NumBinsY are the solver's histogram bin counts.
	NumBinsX int
	NumBinsY int
	// Tolerance is the solver's convergence threshold.
	Tolerance float64
	// Temperature in Kelvin.
	Temperature float64
	// Mask is the solver-specific mask flag, passed verbatim.
	Mask string
	// FCX and FCY are the harmonic force constants of the bias windows.
	FCX float64
	FCY float64
	// Verbose echoes the solver command line and its raw output to the log.
	Verbose bool
}

func (c Config) Validate() error {
	var errs []error
	if c.NumBinsX <= 0 {
		errs = append(errs, fmt.Errorf("num_bins_x must be positive, got %d", c.NumBinsX))
	}
	if c.NumBinsY <= 0 {
		errs = append(errs, fmt.Errorf("num_bins_y must be positive, got %d", c.NumBinsY))
	}
	if c.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("tolerance must be positive, got %g", c.Tolerance))
	}
	if c.Temperature <= 0 {
		errs = append(errs, fmt.Errorf("temperature must be positive, got %g", c.Temperature))
	}
	if c.FCX <= 0 {
		errs = append(errs, fmt.Errorf("fc_x must be positive, got %g", c.FCX))
	}
	if c.FCY <= 0 {
		errs = append(errs, fmt.Errorf("fc_y must be positive, got %g", c.FCY))
	}
	if c.Mask == "" {
		errs = append(errs, errors.New("mask must be set"))
	}
	return errors.Join(errs...)
}

// executable returns the configured binary or the default.
func (c Config) executable() string {
	if c.Executable == "" {
		return DefaultExecutable
	}
	return c.Executable
}
