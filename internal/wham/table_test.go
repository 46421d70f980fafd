package wham

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeTable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "freeenergy.dat")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write table: %v", err)
	}
	return path
}

func TestLoadPMFTableDropsInfiniteRows(t *testing.T) {
	path := writeTable(t, "# x y e pro\n"+
		"0.1 0.2 inf 0.0\n"+
		"0.1 0.3 -1.5 0.2\n"+
		"0.2 0.2 -inf 0.0\n"+
		"0.2 0.3 2.5 0.1\n")

	rows, err := LoadPMFTable(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 finite rows, got %d: %+v", len(rows), rows)
	}
	if rows[0] != (Row{X: 0.1, Y: 0.3, E: -1.5, Pro: 0.2}) {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1] != (Row{X: 0.2, Y: 0.3, E: 2.5, Pro: 0.1}) {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
}

func TestLoadPMFTableDropsNaNRows(t *testing.T) {
	path := writeTable(t, "# x y e pro\n"+
		"0.0 0.0 nan 0.0\n"+
		"0.1 0.0 -2.0 0.4\n")

	rows, err := LoadPMFTable(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 finite row, got %d: %+v", len(rows), rows)
	}
	if math.IsNaN(rows[0].E) || rows[0].E != -2.0 {
		t.Fatalf("unexpected surviving row: %+v", rows[0])
	}
}

func TestLoadPMFTableSkipsHeaderAndBlankLines(t *testing.T) {
	path := writeTable(t, "x y e pro\n\n0.0 0.0 1.0 0.5\n\n")
	rows, err := LoadPMFTable(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 1 || rows[0].E != 1.0 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestLoadPMFTableMalformedField(t *testing.T) {
	path := writeTable(t, "# header\n0.1 0.2 not-a-number 0.0\n")
	if _, err := LoadPMFTable(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadPMFTableShortRow(t *testing.T) {
	path := writeTable(t, "# header\n0.1 0.2\n")
	if _, err := LoadPMFTable(path); err == nil {
		t.Fatal("expected column-count error")
	}
}

func TestLoadPMFTableMissingFile(t *testing.T) {
	if _, err := LoadPMFTable(filepath.Join(t.TempDir(), "nope.dat")); err == nil {
		t.Fatal("expected missing-file error")
	}
}
