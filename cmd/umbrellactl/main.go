package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danijoo/adaptiveumbrella/internal/ctxlog"
	"github.com/danijoo/adaptiveumbrella/internal/cvgrid"
	"github.com/danijoo/adaptiveumbrella/internal/storage"
	umbapi "github.com/danijoo/adaptiveumbrella/pkg/adaptiveumbrella"
)

const (
	defaultArtifactsDir = "artifacts"
	defaultExportsDir   = "exports"
	defaultDBPath       = "adaptiveumbrella.db"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := ctxlog.WithLogger(context.Background(), logger)
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "pmf":
		return runPMF(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "heatmap":
		return runHeatmap(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: umbrellactl <init|reset|run|runs|pmf|export|heatmap> [flags]", msg)
}

func storeFlags(fs *flag.FlagSet) (storeKind, dbPath *string) {
	storeKind = fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath = fs.String("db-path", defaultDBPath, "sqlite database path")
	return storeKind, dbPath
}

func newClient(storeKind, dbPath, artifactsDir, exportsDir string) (*umbapi.Client, error) {
	return umbapi.New(umbapi.Options{
		StoreKind:    storeKind,
		DBPath:       dbPath,
		ArtifactsDir: artifactsDir,
		ExportsDir:   exportsDir,
	})
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind, dbPath := storeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath, defaultArtifactsDir, defaultExportsDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}
	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	storeKind, dbPath := storeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath, defaultArtifactsDir, defaultExportsDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Reset(ctx); err != nil {
		return err
	}
	fmt.Printf("reset store=%s\n", *storeKind)
	return nil
}

// runRun starts a sampling campaign. Arguments after the flags are passed to
// the simulation executable ahead of the window's lambda pair.
func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "HCL run configuration path")
	runID := fs.String("run-id", "", "explicit run id (optional)")
	maxIterations := fs.Int("max-iterations", 0, "override the configured iteration cap (0 keeps config)")
	simExecutable := fs.String("sim", "", "simulation executable invoked once per window")
	heatmaps := fs.Bool("heatmaps", false, "render per-iteration PNG heatmaps")
	artifacts := fs.String("artifacts", defaultArtifactsDir, "artifact output directory")
	storeKind, dbPath := storeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return errors.New("run requires -config")
	}
	if *simExecutable == "" {
		return errors.New("run requires -sim")
	}

	client, err := newClient(*storeKind, *dbPath, *artifacts, defaultExportsDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, umbapi.RunRequest{
		ConfigPath:    *configPath,
		RunID:         *runID,
		MaxIterations: *maxIterations,
		SimExecutable: *simExecutable,
		SimArgs:       fs.Args(),
		Heatmaps:      *heatmaps,
	})
	if err != nil {
		return err
	}
	fmt.Printf("run completed run_id=%s iterations=%d sampled_windows=%d finite_cells=%d min_energy=%.6f\n",
		summary.RunID,
		summary.Iterations,
		summary.SampledWindows,
		summary.FiniteCells,
		summary.MinEnergy,
	)
	fmt.Printf("artifacts_dir=%s\n", summary.ArtifactsDir)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	artifacts := fs.String("artifacts", defaultArtifactsDir, "artifact output directory")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	storeKind, dbPath := storeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := newClient(*storeKind, *dbPath, *artifacts, defaultExportsDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, umbapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	for _, item := range runs {
		age := item.CreatedAtUTC
		if created, err := time.Parse(time.RFC3339, item.CreatedAtUTC); err == nil {
			age = humanize.Time(created)
		}
		fmt.Printf("run_id=%s status=%s iterations=%d sampled_windows=%d created=%s\n",
			item.RunID,
			item.Status,
			item.Iterations,
			item.SampledWindows,
			age,
		)
	}
	return nil
}

func runPMF(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pmf", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run from the run index")
	iteration := fs.Int("iteration", -1, "snapshot iteration (-1 for the latest)")
	artifacts := fs.String("artifacts", defaultArtifactsDir, "artifact output directory")
	jsonOut := fs.Bool("json", false, "emit the snapshot as JSON")
	storeKind, dbPath := storeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath, *artifacts, defaultExportsDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	snapshot, err := client.PMF(ctx, umbapi.PMFRequest{
		RunID:     *runID,
		Latest:    *latest,
		Iteration: *iteration,
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshot)
	}

	fmt.Printf("run_id=%s iteration=%d finite_cells=%d\n", snapshot.RunID, snapshot.Iteration, len(snapshot.Cells))
	for _, cell := range snapshot.Cells {
		lx, ly := snapshot.Defs.Lambdas(cell.IX, cell.IY)
		fmt.Printf("x=%s y=%s e=%.6f\n", cvgrid.FormatLambda(lx), cvgrid.FormatLambda(ly), cell.E)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from the run index")
	outDir := fs.String("out", "", "destination directory (default exports/)")
	artifacts := fs.String("artifacts", defaultArtifactsDir, "artifact output directory")
	storeKind, dbPath := storeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath, *artifacts, defaultExportsDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Export(ctx, umbapi.ExportRequest{
		RunID:  *runID,
		Latest: *latest,
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s dir=%s\n", summary.RunID, summary.Directory)
	return nil
}

func runHeatmap(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("heatmap", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "render the most recent run from the run index")
	iteration := fs.Int("iteration", -1, "snapshot iteration (-1 for the latest)")
	outDir := fs.String("out", "", "destination directory (default exports/)")
	artifacts := fs.String("artifacts", defaultArtifactsDir, "artifact output directory")
	storeKind, dbPath := storeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath, *artifacts, defaultExportsDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	path, err := client.Heatmap(ctx, umbapi.HeatmapRequest{
		RunID:     *runID,
		Latest:    *latest,
		Iteration: *iteration,
		OutDir:    *outDir,
	})
	if err != nil {
		return err
	}
	fmt.Printf("heatmap written to %s\n", path)
	return nil
}
