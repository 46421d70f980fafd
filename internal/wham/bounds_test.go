package wham

import (
	"errors"
	"math"
	"testing"

	"github.com/danijoo/adaptiveumbrella/internal/cvgrid"
)

func TestScanBoundsSingleWindow(t *testing.T) {
	defs := cvgrid.Defs{
		{Min: 0, Max: 1, Step: 0.1},
		{Min: 0, Max: 1, Step: 0.1},
	}
	samples := cvgrid.NewGridFor(defs)
	samples.Set(1, 1, 3)

	bounds, err := ScanBounds(samples, defs)
	if err != nil {
		t.Fatalf("scan bounds: %v", err)
	}
	// Single window at lambda (0.1, 0.1); margin is two steps per side.
	wantMin := 0.1 - 0.2
	wantMax := 0.1 + 0.2
	if !close(bounds.MinX, wantMin) || !close(bounds.MinY, wantMin) {
		t.Fatalf("unexpected min bounds: %+v", bounds)
	}
	if !close(bounds.MaxX, wantMax) || !close(bounds.MaxY, wantMax) {
		t.Fatalf("unexpected max bounds: %+v", bounds)
	}
}

func TestScanBoundsAxisAlignedBox(t *testing.T) {
	defs := cvgrid.Defs{
		{Min: -1, Max: 1, Step: 0.5},
		{Min: -1, Max: 1, Step: 0.25},
	}
	samples := cvgrid.NewGridFor(defs)
	// The box must cover min/max per axis independently even though no
	// single cell sits at a box corner.
	samples.Set(0, 2, 1) // lambda (-1.0, -0.5)
	samples.Set(3, 1, 1) // lambda (0.5, -0.75)

	bounds, err := ScanBounds(samples, defs)
	if err != nil {
		t.Fatalf("scan bounds: %v", err)
	}
	if !close(bounds.MinX, -1.0-1.0) || !close(bounds.MaxX, 0.5+1.0) {
		t.Fatalf("unexpected x bounds: %+v", bounds)
	}
	if !close(bounds.MinY, -0.75-0.5) || !close(bounds.MaxY, -0.5+0.5) {
		t.Fatalf("unexpected y bounds: %+v", bounds)
	}

	// Every sampled coordinate lies strictly inside the rectangle.
	for _, idx := range [][2]int{{0, 2}, {3, 1}} {
		lx, ly := defs.Lambdas(idx[0], idx[1])
		if lx <= bounds.MinX || lx >= bounds.MaxX || ly <= bounds.MinY || ly >= bounds.MaxY {
			t.Fatalf("sampled coordinate (%g, %g) outside bounds %+v", lx, ly, bounds)
		}
	}
}

func TestScanBoundsEmptyGrid(t *testing.T) {
	defs := cvgrid.Defs{
		{Min: 0, Max: 1, Step: 0.1},
		{Min: 0, Max: 1, Step: 0.1},
	}
	_, err := ScanBounds(cvgrid.NewGridFor(defs), defs)
	if !errors.Is(err, ErrNoSamples) {
		t.Fatalf("expected ErrNoSamples, got %v", err)
	}
}

func close(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
