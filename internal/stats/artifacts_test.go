package stats

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/danijoo/adaptiveumbrella/internal/cvgrid"
)

func testDefs() cvgrid.Defs {
	return cvgrid.Defs{
		{Min: 0, Max: 0.2, Step: 0.1},
		{Min: 0, Max: 0.2, Step: 0.1},
	}
}

// readPMFCSV loads an exported surface back; "inf" cells parse to +Inf.
func readPMFCSV(path string, defs cvgrid.Defs) (*cvgrid.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	grid := cvgrid.NewGridFor(defs)
	grid.Fill(math.Inf(1))
	for i, record := range records {
		if i == 0 {
			continue // header
		}
		if len(record) != 3 {
			return nil, fmt.Errorf("pmf csv row %d: expected 3 fields", i+1)
		}
		lx, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("pmf csv row %d: %w", i+1, err)
		}
		ly, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("pmf csv row %d: %w", i+1, err)
		}
		e, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return nil, fmt.Errorf("pmf csv row %d: %w", i+1, err)
		}
		ix, iy := defs.Indexes(lx, ly)
		if !grid.InBounds(ix, iy) {
			return nil, fmt.Errorf("pmf csv row %d: coordinate (%g, %g) outside grid", i+1, lx, ly)
		}
		grid.Set(ix, iy, e)
	}
	return grid, nil
}

func TestAppendAndListRunIndex(t *testing.T) {
	base := t.TempDir()

	entries := []RunIndexEntry{
		{RunID: "run-a", Status: "finished", Iterations: 3, CreatedAtUTC: "2024-01-01T00:00:00Z"},
		{RunID: "run-b", Status: "running", Iterations: 1, CreatedAtUTC: "2024-02-01T00:00:00Z"},
	}
	for _, e := range entries {
		if err := AppendRunIndex(base, e); err != nil {
			t.Fatalf("append %s: %v", e.RunID, err)
		}
	}
	// Updating an existing run replaces its entry.
	if err := AppendRunIndex(base, RunIndexEntry{
		RunID: "run-b", Status: "finished", Iterations: 5, CreatedAtUTC: "2024-02-01T00:00:00Z",
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := ListRunIndex(base)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	// Newest first.
	if got[0].RunID != "run-b" || got[0].Iterations != 5 || got[0].Status != "finished" {
		t.Fatalf("unexpected first entry: %+v", got[0])
	}
}

func TestListRunIndexEmptyDir(t *testing.T) {
	got, err := ListRunIndex(t.TempDir())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty index, got %+v", got)
	}
}

func TestWriteAndReadPMFCSV(t *testing.T) {
	defs := testDefs()
	pmf := cvgrid.NewGridFor(defs)
	pmf.Fill(math.Inf(1))
	pmf.Set(1, 1, -2.5)
	pmf.Set(2, 0, 0.75)

	dir, err := RunDir(t.TempDir(), "run-1")
	if err != nil {
		t.Fatalf("run dir: %v", err)
	}
	path, err := WritePMFCSV(dir, 3, defs, pmf)
	if err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if filepath.Base(path) != "pmf_3.csv" {
		t.Fatalf("unexpected csv name: %s", path)
	}

	loaded, err := readPMFCSV(path, defs)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if got := loaded.At(1, 1); got != -2.5 {
		t.Fatalf("cell (1,1): expected -2.5, got %g", got)
	}
	if got := loaded.At(2, 0); got != 0.75 {
		t.Fatalf("cell (2,0): expected 0.75, got %g", got)
	}
	if got := loaded.At(0, 0); !math.IsInf(got, 1) {
		t.Fatalf("cell (0,0): expected +Inf, got %g", got)
	}
}

func TestRenderPMFHeatmapWritesPNG(t *testing.T) {
	defs := testDefs()
	pmf := cvgrid.NewGridFor(defs)
	pmf.Fill(math.Inf(1))
	pmf.Set(0, 0, -1)
	pmf.Set(1, 1, -3)
	pmf.Set(2, 2, 2)

	dir, err := RunDir(t.TempDir(), "run-1")
	if err != nil {
		t.Fatalf("run dir: %v", err)
	}
	path, err := RenderPMFHeatmap(dir, 0, defs, pmf)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat png: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("heatmap file is empty")
	}
}

func TestPMFGridXYZCapsUnknownCells(t *testing.T) {
	defs := testDefs()
	pmf := cvgrid.NewGridFor(defs)
	pmf.Fill(math.Inf(1))
	pmf.Set(0, 0, -4)
	pmf.Set(1, 0, 6)

	g := newPMFGridXYZ(defs, pmf)
	if got := g.Z(0, 0); got != -4 {
		t.Fatalf("finite cell altered: %g", got)
	}
	if got := g.Z(2, 2); got != 6 {
		t.Fatalf("unknown cell should map to max finite energy, got %g", got)
	}
	c, r := g.Dims()
	if c != 3 || r != 3 {
		t.Fatalf("unexpected dims %dx%d", c, r)
	}
	if g.X(1) != 0.1 || g.Y(2) != 0.2 {
		t.Fatalf("unexpected axis coordinates: %g, %g", g.X(1), g.Y(2))
	}
}
