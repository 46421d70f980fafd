package umbrella

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danijoo/adaptiveumbrella/internal/cvgrid"
	"github.com/danijoo/adaptiveumbrella/internal/extproc"
)

// Simulator runs the biased simulation of one window and leaves its COLVAR
// time series in the window directory. How the trajectory is produced is
// none of the pipeline's business; runs that fail to produce a COLVAR file
// are tolerated downstream.
type Simulator interface {
	Simulate(ctx context.Context, lx, ly float64) error
}

// WindowDir returns the per-window simulation directory, named after the
// window's lambda pair.
func WindowDir(simulationDir string, lx, ly float64) string {
	name := fmt.Sprintf("umb_%s_%s", cvgrid.FormatLambda(lx), cvgrid.FormatLambda(ly))
	return filepath.Join(simulationDir, name)
}

// ColvarPath returns the collective-variable time-series file of a window.
func ColvarPath(simulationDir string, lx, ly float64) string {
	return filepath.Join(WindowDir(simulationDir, lx, ly), "COLVAR")
}

// ExecSimulator launches an external simulation program once per window,
// with the window's lambda pair appended to the argument list and the
// window directory as working directory.
type ExecSimulator struct {
	SimulationDir string
	Executable    string
	Args          []string
	Invoker       extproc.Invoker
}

func (s *ExecSimulator) Simulate(ctx context.Context, lx, ly float64) error {
	dir := WindowDir(s.SimulationDir, lx, ly)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create window dir: %w", err)
	}
	args := append(append([]string(nil), s.Args...), cvgrid.FormatLambda(lx), cvgrid.FormatLambda(ly))
	inv := s.Invoker
	if inv == nil {
		inv = &extproc.ExecInvoker{}
	}
	if err := inv.Run(ctx, extproc.Command{Name: s.Executable, Args: args, Dir: dir}); err != nil {
		return fmt.Errorf("simulate window (%s, %s): %w", cvgrid.FormatLambda(lx), cvgrid.FormatLambda(ly), err)
	}
	return nil
}
