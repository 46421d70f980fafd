package wham

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danijoo/adaptiveumbrella/internal/ctxlog"
	"github.com/danijoo/adaptiveumbrella/internal/cvgrid"
	"github.com/danijoo/adaptiveumbrella/internal/extproc"
)

// Solver drives one PMF recomputation: manifest, bounds, external solver
// run, output load, projection. The whole pipeline is sequential and
// blocking; any stage error aborts the cycle before the PMF grid is touched.
type Solver struct {
	Config  Config
	TmpDir  string
	Invoker extproc.Invoker
}

// NewSolver validates the configuration and returns a ready solver. The
// temporary directory is created if needed.
func NewSolver(cfg Config, tmpDir string, invoker extproc.Invoker) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("wham config: %w", err)
	}
	if invoker == nil {
		invoker = &extproc.ExecInvoker{Verbose: cfg.Verbose}
	}
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create wham tmp dir: %w", err)
	}
	return &Solver{Config: cfg, TmpDir: tmpDir, Invoker: invoker}, nil
}

// MetadataPath is the manifest file for the given update iteration. Paths
// embed the iteration counter so consecutive cycles never collide.
func (s *Solver) MetadataPath(iteration int) string {
	return filepath.Join(s.TmpDir, fmt.Sprintf("%d_metadata.dat", iteration))
}

// OutputPath is the solver output file for the given update iteration.
func (s *Solver) OutputPath(iteration int) string {
	return filepath.Join(s.TmpDir, fmt.Sprintf("%d_freeenergy.dat", iteration))
}

// command assembles the full wham-2d invocation for the given scan bounds
// and file pair.
func (s *Solver) command(bounds Bounds, metaPath, outPath string) extproc.Command {
	cfg := s.Config
	return extproc.Command{
		Name: cfg.executable(),
		Args: []string{
			"Px=" + cvgrid.FormatLambda(cfg.Px),
			cvgrid.FormatLambda(bounds.MinX),
			cvgrid.FormatLambda(bounds.MaxX),
			fmt.Sprintf("%d", cfg.NumBinsX),
			"Py=" + cvgrid.FormatLambda(cfg.Py),
			cvgrid.FormatLambda(bounds.MinY),
			cvgrid.FormatLambda(bounds.MaxY),
			fmt.Sprintf("%d", cfg.NumBinsY),
			cvgrid.FormatLambda(cfg.Tolerance),
			cvgrid.FormatLambda(cfg.Temperature),
			"0", // no periodicity flag
			metaPath,
			outPath,
			cfg.Mask,
		},
	}
}

// Invoke runs the external solver for the given bounds and files. When the
// output file already exists the run is skipped entirely: solver input is
// derived from the iteration counter, so an existing output is a valid cache
// of an identical earlier invocation. A nonzero exit status is fatal.
func (s *Solver) Invoke(ctx context.Context, bounds Bounds, metaPath, outPath string) error {
	log := ctxlog.FromContext(ctx)
	if _, err := os.Stat(outPath); err == nil {
		log.Info("skipping wham run, output exists", "path", outPath)
		return nil
	}
	if err := s.Invoker.Run(ctx, s.command(bounds, metaPath, outPath)); err != nil {
		return fmt.Errorf("wham solver: %w", err)
	}
	return nil
}

// RecomputePMF runs the full update cycle for one iteration and commits the
// projected surface into pmf. The sample grid and defs stay untouched; pmf
// is only written after every stage succeeded, so a failed cycle never
// leaves a half-updated surface. The scan bounds passed to the solver are
// returned so callers can record them without deriving them a second time.
func (s *Solver) RecomputePMF(ctx context.Context, defs cvgrid.Defs, samples *cvgrid.Grid, windows Windows, iteration int, pmf *cvgrid.Grid) (Bounds, error) {
	metaPath := s.MetadataPath(iteration)
	outPath := s.OutputPath(iteration)

	if err := WriteMetadata(ctx, metaPath, windows, s.Config); err != nil {
		return Bounds{}, err
	}
	bounds, err := ScanBounds(samples, defs)
	if err != nil {
		return Bounds{}, err
	}
	if err := s.Invoke(ctx, bounds, metaPath, outPath); err != nil {
		return Bounds{}, err
	}
	rows, err := LoadPMFTable(outPath)
	if err != nil {
		return Bounds{}, err
	}
	return bounds, pmf.CopyFrom(Project(defs, rows))
}
