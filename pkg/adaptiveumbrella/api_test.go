package adaptiveumbrella

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// fakeWhamScript stands in for wham-2d: it emits one zero-energy output row
// per manifest window.
const fakeWhamScript = `#!/bin/sh
meta="${12}"
out="${13}"
{
	echo "# x y free pro"
	while read -r path x y rest; do
		echo "$x $y 0.0 1.0"
	done < "$meta"
} > "$out"
`

func writeWhamScript(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "fake-wham-2d")
	if err := os.WriteFile(path, []byte(fakeWhamScript), 0o755); err != nil {
		t.Fatalf("write wham script: %v", err)
	}
	return path
}

func writeRunConfig(t *testing.T, base, whamPath string) string {
	t.Helper()
	content := fmt.Sprintf(`
cv "x" {
  min  = 0
  max  = 0.2
  step = 0.1
}

cv "y" {
  min  = 0
  max  = 0.2
  step = 0.1
}

wham {
  executable  = %q
  num_bins_x  = 50
  num_bins_y  = 50
  tolerance   = 0.001
  temperature = 300
  mask        = "1"
  fc_x        = 100
  fc_y        = 100
}

runner {
  root           = [0.1, 0.1]
  e_max          = 10
  e_step         = 5
  tmp_dir        = %q
  simulation_dir = %q
}
`, whamPath, filepath.Join(base, "wham"), filepath.Join(base, "sim"))

	path := filepath.Join(base, "run.hcl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func newTestClient(t *testing.T, base string) *Client {
	t.Helper()
	client, err := New(Options{
		StoreKind:    "memory",
		ArtifactsDir: filepath.Join(base, "artifacts"),
		ExportsDir:   filepath.Join(base, "exports"),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClientRunAndInspect(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on /bin/sh")
	}
	base := t.TempDir()
	configPath := writeRunConfig(t, base, writeWhamScript(t, base))
	client := newTestClient(t, base)

	ctx := context.Background()
	summary, err := client.Run(ctx, RunRequest{
		ConfigPath:    configPath,
		RunID:         "run-api",
		SimExecutable: "/bin/sh",
		SimArgs:       []string{"-c", `printf "" > COLVAR`},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RunID != "run-api" {
		t.Fatalf("unexpected run id: %s", summary.RunID)
	}
	// 3x3 grid covered in two iterations: root, then its 8 neighbors.
	if summary.Iterations != 2 || summary.SampledWindows != 9 || summary.FiniteCells != 9 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	runs, err := client.Runs(ctx, RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "run-api" || runs[0].Status != "finished" {
		t.Fatalf("unexpected runs listing: %+v", runs)
	}

	snapshot, err := client.PMF(ctx, PMFRequest{RunID: "run-api", Iteration: -1})
	if err != nil {
		t.Fatalf("pmf: %v", err)
	}
	if snapshot.Iteration != 1 || len(snapshot.Cells) != 9 {
		t.Fatalf("unexpected snapshot: iteration=%d cells=%d", snapshot.Iteration, len(snapshot.Cells))
	}

	export, err := client.Export(ctx, ExportRequest{Latest: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if export.RunID != "run-api" {
		t.Fatalf("unexpected export run id: %s", export.RunID)
	}
	if _, err := os.Stat(filepath.Join(export.Directory, "pmf_1.csv")); err != nil {
		t.Fatalf("exported artifact missing: %v", err)
	}

	heatmapPath, err := client.Heatmap(ctx, HeatmapRequest{RunID: "run-api", Iteration: -1})
	if err != nil {
		t.Fatalf("heatmap: %v", err)
	}
	info, err := os.Stat(heatmapPath)
	if err != nil {
		t.Fatalf("stat heatmap: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("heatmap file is empty")
	}
}

func TestClientRunsListsStoreHistory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on /bin/sh")
	}
	base := t.TempDir()
	configPath := writeRunConfig(t, base, writeWhamScript(t, base))
	client := newTestClient(t, base)
	ctx := context.Background()

	if _, err := client.Run(ctx, RunRequest{
		ConfigPath:    configPath,
		RunID:         "run-store",
		SimExecutable: "/bin/sh",
		SimArgs:       []string{"-c", `printf "" > COLVAR`},
	}); err != nil {
		t.Fatalf("run: %v", err)
	}

	// A fresh memory-backed client has no store history and falls back to
	// the artifact index.
	fresh := newTestClient(t, base)
	runs, err := fresh.Runs(ctx, RunsRequest{})
	if err != nil {
		t.Fatalf("runs via index: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "run-store" {
		t.Fatalf("unexpected index-backed listing: %+v", runs)
	}

	// The listing must not depend on the artifact index when the store has
	// the history.
	if err := os.RemoveAll(filepath.Join(base, "artifacts")); err != nil {
		t.Fatalf("remove artifacts: %v", err)
	}
	runs, err = client.Runs(ctx, RunsRequest{})
	if err != nil {
		t.Fatalf("runs via store: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "run-store" || runs[0].Status != "finished" {
		t.Fatalf("unexpected store-backed listing: %+v", runs)
	}
	if runs[0].SampledWindows != 9 || runs[0].CreatedAtUTC == "" {
		t.Fatalf("store-backed entry incomplete: %+v", runs[0])
	}

	// The latest selector resolves from the store as well.
	snapshot, err := client.PMF(ctx, PMFRequest{Latest: true, Iteration: -1})
	if err != nil {
		t.Fatalf("pmf latest: %v", err)
	}
	if snapshot.RunID != "run-store" {
		t.Fatalf("unexpected latest run: %s", snapshot.RunID)
	}
}

func TestClientRunGeneratesRunID(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on /bin/sh")
	}
	base := t.TempDir()
	configPath := writeRunConfig(t, base, writeWhamScript(t, base))
	client := newTestClient(t, base)

	summary, err := client.Run(context.Background(), RunRequest{
		ConfigPath:    configPath,
		MaxIterations: 1,
		SimExecutable: "/bin/sh",
		SimArgs:       []string{"-c", `printf "" > COLVAR`},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RunID == "" {
		t.Fatal("expected generated run id")
	}
	if summary.Iterations != 1 {
		t.Fatalf("iteration override ignored: %+v", summary)
	}
}

func TestClientRunValidation(t *testing.T) {
	client := newTestClient(t, t.TempDir())
	ctx := context.Background()

	if _, err := client.Run(ctx, RunRequest{SimExecutable: "sim"}); err == nil {
		t.Fatal("expected missing config error")
	}
	if _, err := client.Run(ctx, RunRequest{ConfigPath: "run.hcl"}); err == nil {
		t.Fatal("expected missing simulation executable error")
	}
}

func TestClientResolveRunID(t *testing.T) {
	client := newTestClient(t, t.TempDir())
	ctx := context.Background()

	if _, err := client.Export(ctx, ExportRequest{RunID: "run-1", Latest: true}); err == nil {
		t.Fatal("expected mutual-exclusion error")
	}
	if _, err := client.Export(ctx, ExportRequest{}); err == nil {
		t.Fatal("expected missing selector error")
	}
	if _, err := client.Export(ctx, ExportRequest{Latest: true}); err == nil {
		t.Fatal("expected no-runs error")
	}
}

func TestClientReset(t *testing.T) {
	client := newTestClient(t, t.TempDir())
	ctx := context.Background()

	if err := client.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := client.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
}
