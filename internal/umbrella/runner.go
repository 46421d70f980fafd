// Package umbrella implements the adaptive umbrella-sampling loop: pick
// frontier windows below the current energy cutoff, simulate them, then
// recompute the PMF surface from all windows through the WHAM pipeline.
package umbrella

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/danijoo/adaptiveumbrella/internal/config"
	"github.com/danijoo/adaptiveumbrella/internal/ctxlog"
	"github.com/danijoo/adaptiveumbrella/internal/cvgrid"
	"github.com/danijoo/adaptiveumbrella/internal/model"
	"github.com/danijoo/adaptiveumbrella/internal/stats"
	"github.com/danijoo/adaptiveumbrella/internal/storage"
	"github.com/danijoo/adaptiveumbrella/internal/wham"
)

// Runner owns the run's state: the sample grid, the PMF surface, and the
// iteration counter. One Runner drives one run; it is not safe for
// concurrent use and does not need to be, the pipeline is sequential by
// design.
type Runner struct {
	runID    string
	defs     cvgrid.Defs
	settings config.Runner

	solver *wham.Solver
	sim    Simulator
	store  storage.Store

	// artifactsDir disables artifact output when empty. Heatmap rendering
	// can fail independently of the run (headless plot issues) and is
	// therefore only logged, never fatal.
	artifactsDir string
	heatmaps     bool

	samples *cvgrid.Grid
	pmf     *cvgrid.Grid

	iteration int
	sampled   [][2]int // encounter order of sampled cells
	createdAt time.Time
}

// Result summarizes a finished run.
type Result struct {
	RunID          string
	Iterations     int
	SampledWindows int
	FiniteCells    int
	MinEnergy      float64
}

// Options bundles the collaborators of a run.
type Options struct {
	RunID        string
	Config       config.Config
	Solver       *wham.Solver
	Simulator    Simulator
	Store        storage.Store
	ArtifactsDir string
	Heatmaps     bool
}

func NewRunner(opts Options) (*Runner, error) {
	if opts.RunID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	if opts.Solver == nil || opts.Simulator == nil || opts.Store == nil {
		return nil, fmt.Errorf("solver, simulator and store are required")
	}
	defs := opts.Config.Defs
	if err := defs.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{
		runID:        opts.RunID,
		defs:         defs,
		settings:     opts.Config.Runner,
		solver:       opts.Solver,
		sim:          opts.Simulator,
		store:        opts.Store,
		artifactsDir: opts.ArtifactsDir,
		heatmaps:     opts.Heatmaps,
		samples:      cvgrid.NewGridFor(defs),
		pmf:          cvgrid.NewGridFor(defs),
		createdAt:    time.Now().UTC(),
	}
	r.pmf.Fill(math.Inf(1))

	rootIX, rootIY := defs.Indexes(r.settings.Root[0], r.settings.Root[1])
	if !r.samples.InBounds(rootIX, rootIY) {
		return nil, fmt.Errorf("root lambda pair (%g, %g) outside the cv grid", r.settings.Root[0], r.settings.Root[1])
	}
	return r, nil
}

// PMF returns a copy of the current surface.
func (r *Runner) PMF() *cvgrid.Grid { return r.pmf.Clone() }

// Samples returns a copy of the sample-count grid.
func (r *Runner) Samples() *cvgrid.Grid { return r.samples.Clone() }

func (r *Runner) Iteration() int { return r.iteration }

// SampledLambdas lists the lambda pairs of all windows simulated so far, in
// encounter order. Part of the wham.Windows contract.
func (r *Runner) SampledLambdas() [][2]float64 {
	pairs := make([][2]float64, 0, len(r.sampled))
	for _, idx := range r.sampled {
		lx, ly := r.defs.Lambdas(idx[0], idx[1])
		pairs = append(pairs, [2]float64{lx, ly})
	}
	return pairs
}

// ColvarPath resolves a window's time-series file. Part of the wham.Windows
// contract.
func (r *Runner) ColvarPath(lx, ly float64) string {
	return ColvarPath(r.settings.SimulationDir, lx, ly)
}

// cutoff is the frontier energy threshold for the current iteration: a ramp
// from EMin to EMax in EStep increments, so early iterations stay close to
// the minimum and the sampled region grows outward gradually.
func (r *Runner) cutoff() float64 {
	c := r.settings.EMin + float64(r.iteration)*r.settings.EStep
	if c > r.settings.EMax {
		c = r.settings.EMax
	}
	return c
}

// frontier selects the windows to simulate this iteration: every unsampled
// cell adjacent (8-neighborhood) to a sampled cell whose energy lies at or
// below the cutoff, relative to the surface minimum. Before anything was
// sampled the frontier is just the root window.
func (r *Runner) frontier(cutoff float64) [][2]int {
	if len(r.sampled) == 0 {
		ix, iy := r.defs.Indexes(r.settings.Root[0], r.settings.Root[1])
		return [][2]int{{ix, iy}}
	}

	minE := r.pmf.MinFinite()
	nx, ny := r.pmf.Shape()
	var out [][2]int
	seen := make(map[[2]int]bool)
	for ix := 0; ix < nx; ix++ {
		for iy := 0; iy < ny; iy++ {
			if r.samples.At(ix, iy) == 0 {
				continue
			}
			e := r.pmf.At(ix, iy)
			if e-minE > cutoff {
				continue
			}
			for dx := -1; dx <= 1; dx++ {
				for dy := -1; dy <= 1; dy++ {
					if dx == 0 && dy == 0 {
						continue
					}
					n := [2]int{ix + dx, iy + dy}
					if !r.samples.InBounds(n[0], n[1]) || r.samples.At(n[0], n[1]) != 0 || seen[n] {
						continue
					}
					seen[n] = true
					out = append(out, n)
				}
			}
		}
	}
	return out
}

// Step runs one PMF-update cycle. It returns done=true when the frontier is
// empty and the surface cannot grow further.
func (r *Runner) Step(ctx context.Context) (done bool, err error) {
	log := ctxlog.FromContext(ctx)

	cutoff := r.cutoff()
	frontier := r.frontier(cutoff)
	if len(frontier) == 0 {
		return true, nil
	}
	log.Info("sampling frontier windows",
		"run", r.runID, "iteration", r.iteration, "cutoff", cutoff, "windows", len(frontier))

	for _, idx := range frontier {
		lx, ly := r.defs.Lambdas(idx[0], idx[1])
		if err := r.sim.Simulate(ctx, lx, ly); err != nil {
			// A failed window shows up as a missing COLVAR file and is
			// skipped by the manifest writer; the run carries on.
			log.Warn("window simulation failed", "lambda_x", lx, "lambda_y", ly, "err", err)
		}
		r.markSampled(idx[0], idx[1])
	}

	bounds, err := r.solver.RecomputePMF(ctx, r.defs, r.samples, r, r.iteration, r.pmf)
	if err != nil {
		return false, fmt.Errorf("iteration %d: %w", r.iteration, err)
	}

	if err := r.persistIteration(ctx, len(frontier), bounds); err != nil {
		return false, err
	}
	r.iteration++
	return false, nil
}

// Run drives Step until the frontier is exhausted or the iteration cap is
// reached, and keeps the run record in the store up to date throughout.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if err := r.saveRun(ctx, model.RunStatusRunning, ""); err != nil {
		return Result{}, err
	}

	for {
		if r.settings.MaxIterations > 0 && r.iteration >= r.settings.MaxIterations {
			break
		}
		done, err := r.Step(ctx)
		if err != nil {
			_ = r.saveRun(ctx, model.RunStatusFailed, err.Error())
			return Result{}, err
		}
		if done {
			break
		}
	}

	if err := r.saveRun(ctx, model.RunStatusFinished, ""); err != nil {
		return Result{}, err
	}
	return Result{
		RunID:          r.runID,
		Iterations:     r.iteration,
		SampledWindows: len(r.sampled),
		FiniteCells:    r.pmf.CountFinite(),
		MinEnergy:      r.pmf.MinFinite(),
	}, nil
}

func (r *Runner) markSampled(ix, iy int) {
	if r.samples.At(ix, iy) == 0 {
		r.sampled = append(r.sampled, [2]int{ix, iy})
	}
	r.samples.Add(ix, iy, 1)
}

func (r *Runner) persistIteration(ctx context.Context, frontierSize int, bounds wham.Bounds) error {
	record := model.IterationRecord{
		VersionedRecord: storage.Stamp(),
		RunID:           r.runID,
		Iteration:       r.iteration,
		FrontierSize:    frontierSize,
		NewWindows:      frontierSize,
		SampledTotal:    len(r.sampled),
		Bounds:          [4]float64{bounds.MinX, bounds.MinY, bounds.MaxX, bounds.MaxY},
		FiniteCells:     r.pmf.CountFinite(),
	}
	if record.FiniteCells > 0 {
		record.MinEnergy = r.pmf.MinFinite()
	}
	if err := r.store.SaveIteration(ctx, record); err != nil {
		return err
	}

	snapshot := model.SnapshotFromGrid(r.runID, r.iteration, r.defs, r.pmf)
	snapshot.VersionedRecord = storage.Stamp()
	if err := r.store.SavePMFSnapshot(ctx, snapshot); err != nil {
		return err
	}

	return r.writeArtifacts(ctx)
}

func (r *Runner) writeArtifacts(ctx context.Context) error {
	if r.artifactsDir == "" {
		return nil
	}
	runDir, err := stats.RunDir(r.artifactsDir, r.runID)
	if err != nil {
		return err
	}
	if _, err := stats.WritePMFCSV(runDir, r.iteration, r.defs, r.pmf); err != nil {
		return err
	}
	if r.heatmaps {
		if _, err := stats.RenderPMFHeatmap(runDir, r.iteration, r.defs, r.pmf); err != nil {
			ctxlog.FromContext(ctx).Warn("heatmap rendering failed", "err", err)
		}
	}
	return stats.AppendRunIndex(r.artifactsDir, stats.RunIndexEntry{
		RunID:          r.runID,
		Status:         string(model.RunStatusRunning),
		Iterations:     r.iteration + 1,
		SampledWindows: len(r.sampled),
		CreatedAtUTC:   r.createdAt.Format(time.RFC3339),
	})
}

func (r *Runner) saveRun(ctx context.Context, status model.RunStatus, errMsg string) error {
	run := model.RunRecord{
		VersionedRecord: storage.Stamp(),
		ID:              r.runID,
		Status:          status,
		Defs:            r.defs,
		RootLambdas:     r.settings.Root,
		MaxIterations:   r.settings.MaxIterations,
		Iterations:      r.iteration,
		SampledWindows:  len(r.sampled),
		Error:           errMsg,
		CreatedAt:       r.createdAt,
		UpdatedAt:       time.Now().UTC(),
	}
	if err := r.store.SaveRun(ctx, run); err != nil {
		return err
	}
	if r.artifactsDir != "" && status != model.RunStatusRunning {
		return stats.AppendRunIndex(r.artifactsDir, stats.RunIndexEntry{
			RunID:          r.runID,
			Status:         string(status),
			Iterations:     r.iteration,
			SampledWindows: len(r.sampled),
			CreatedAtUTC:   r.createdAt.Format(time.RFC3339),
		})
	}
	return nil
}
