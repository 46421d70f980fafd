// Package adaptiveumbrella is the embeddable client API for running and
// inspecting adaptive umbrella-sampling campaigns.
package adaptiveumbrella

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/danijoo/adaptiveumbrella/internal/config"
	"github.com/danijoo/adaptiveumbrella/internal/model"
	"github.com/danijoo/adaptiveumbrella/internal/stats"
	"github.com/danijoo/adaptiveumbrella/internal/storage"
	"github.com/danijoo/adaptiveumbrella/internal/umbrella"
	"github.com/danijoo/adaptiveumbrella/internal/wham"
)

const (
	defaultArtifactsDir = "artifacts"
	defaultExportsDir   = "exports"
	defaultDBPath       = "adaptiveumbrella.db"
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
}

type Client struct {
	store       storage.Store
	initialized bool

	artifactsDir string
	exportsDir   string
}

type RunRequest struct {
	// ConfigPath names the HCL run configuration file.
	ConfigPath string
	// RunID overrides the generated run id.
	RunID string
	// MaxIterations overrides the configured iteration cap when positive.
	MaxIterations int
	// SimExecutable launches one window simulation; the window's lambda pair
	// is appended to SimArgs.
	SimExecutable string
	SimArgs       []string
	// Heatmaps enables per-iteration PNG rendering alongside the CSV exports.
	Heatmaps bool
}

type RunSummary struct {
	RunID          string
	ArtifactsDir   string
	Iterations     int
	SampledWindows int
	FiniteCells    int
	MinEnergy      float64
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID          string
	Status         string
	Iterations     int
	SampledWindows int
	CreatedAtUTC   string
}

type PMFRequest struct {
	RunID  string
	Latest bool
	// Iteration selects a specific snapshot; negative means the latest one.
	Iteration int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type HeatmapRequest struct {
	RunID  string
	Latest bool
	// Iteration selects a specific snapshot; negative means the latest one.
	Iteration int
	OutDir    string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.ensureStore(ctx)
}

func (c *Client) Reset(ctx context.Context) error {
	if err := c.ensureStore(ctx); err != nil {
		return err
	}
	return c.store.Reset(ctx)
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.ConfigPath == "" {
		return RunSummary{}, errors.New("run requires a config path")
	}
	if req.SimExecutable == "" {
		return RunSummary{}, errors.New("run requires a simulation executable")
	}

	cfg, err := config.Load(req.ConfigPath)
	if err != nil {
		return RunSummary{}, err
	}
	if req.MaxIterations > 0 {
		cfg.Runner.MaxIterations = req.MaxIterations
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	if err := c.ensureStore(ctx); err != nil {
		return RunSummary{}, err
	}

	solver, err := wham.NewSolver(cfg.WHAM, cfg.Runner.TmpDir, nil)
	if err != nil {
		return RunSummary{}, err
	}
	sim := &umbrella.ExecSimulator{
		SimulationDir: cfg.Runner.SimulationDir,
		Executable:    req.SimExecutable,
		Args:          req.SimArgs,
	}
	runner, err := umbrella.NewRunner(umbrella.Options{
		RunID:        runID,
		Config:       cfg,
		Solver:       solver,
		Simulator:    sim,
		Store:        c.store,
		ArtifactsDir: c.artifactsDir,
		Heatmaps:     req.Heatmaps,
	})
	if err != nil {
		return RunSummary{}, err
	}

	result, err := runner.Run(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	return RunSummary{
		RunID:          result.RunID,
		ArtifactsDir:   filepath.Clean(filepath.Join(c.artifactsDir, result.RunID)),
		Iterations:     result.Iterations,
		SampledWindows: result.SampledWindows,
		FiniteCells:    result.FiniteCells,
		MinEnergy:      result.MinEnergy,
	}, nil
}

// Runs lists run history, newest first. The store is authoritative; when it
// holds no records (a fresh memory-backed client inspecting an earlier run's
// output) the artifact index serves as fallback.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}

	records, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return c.runsFromIndex(req.Limit)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if len(records) > req.Limit {
		records = records[:req.Limit]
	}
	out := make([]RunItem, 0, len(records))
	for _, r := range records {
		out = append(out, RunItem{
			RunID:          r.ID,
			Status:         string(r.Status),
			Iterations:     r.Iterations,
			SampledWindows: r.SampledWindows,
			CreatedAtUTC:   r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out, nil
}

func (c *Client) runsFromIndex(limit int) ([]RunItem, error) {
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:          e.RunID,
			Status:         e.Status,
			Iterations:     e.Iterations,
			SampledWindows: e.SampledWindows,
			CreatedAtUTC:   e.CreatedAtUTC,
		})
	}
	return out, nil
}

// PMF returns the stored surface snapshot of a run, by iteration or the
// latest one.
func (c *Client) PMF(ctx context.Context, req PMFRequest) (model.PMFSnapshot, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return model.PMFSnapshot{}, err
	}
	if err := c.ensureStore(ctx); err != nil {
		return model.PMFSnapshot{}, err
	}

	var (
		snapshot model.PMFSnapshot
		ok       bool
	)
	if req.Iteration < 0 {
		snapshot, ok, err = c.store.LatestPMFSnapshot(ctx, runID)
	} else {
		snapshot, ok, err = c.store.GetPMFSnapshot(ctx, runID, req.Iteration)
	}
	if err != nil {
		return model.PMFSnapshot{}, err
	}
	if !ok {
		return model.PMFSnapshot{}, fmt.Errorf("pmf snapshot not found for run id: %s", runID)
	}
	return snapshot, nil
}

func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// Heatmap renders a stored surface snapshot as a PNG and returns the file
// path.
func (c *Client) Heatmap(ctx context.Context, req HeatmapRequest) (string, error) {
	snapshot, err := c.PMF(ctx, PMFRequest{RunID: req.RunID, Latest: req.Latest, Iteration: req.Iteration})
	if err != nil {
		return "", err
	}
	grid, err := snapshot.Grid()
	if err != nil {
		return "", err
	}

	outDir := req.OutDir
	if outDir == "" {
		outDir = c.exportsDir
	}
	dir, err := stats.RunDir(outDir, snapshot.RunID)
	if err != nil {
		return "", err
	}
	return stats.RenderPMFHeatmap(dir, snapshot.Iteration, snapshot.Defs, grid)
}

func (c *Client) ensureStore(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

func (c *Client) resolveRunID(ctx context.Context, runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id or latest is required")
	}

	runs, err := c.Runs(ctx, RunsRequest{Limit: 1})
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", errors.New("no runs available")
	}
	return runs[0].RunID, nil
}
