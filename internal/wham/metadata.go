package wham

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/danijoo/adaptiveumbrella/internal/ctxlog"
	"github.com/danijoo/adaptiveumbrella/internal/cvgrid"
)

// Windows enumerates the bias windows of a run and resolves their
// collective-variable time-series files. Implemented by the umbrella
// runner, which owns the simulation directory layout.
type Windows interface {
	// SampledLambdas lists the lambda pairs of all windows simulated so far.
	SampledLambdas() [][2]float64
	// ColvarPath returns the time-series file of the window at the given
	// lambda pair. The file may not exist if the window's simulation failed
	// or produced no output.
	ColvarPath(lx, ly float64) string
}

// WriteMetadata writes the solver's input manifest: one tab-separated line
// per sampled window whose time-series file exists, referencing the file,
// the window center, and the force constants. Windows without a file are
// skipped; partial sampling is tolerated.
func WriteMetadata(ctx context.Context, path string, windows Windows, cfg Config) error {
	log := ctxlog.FromContext(ctx)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metadata file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, pair := range windows.SampledLambdas() {
		lx, ly := pair[0], pair[1]
		colvar := windows.ColvarPath(lx, ly)
		if _, err := os.Stat(colvar); err != nil {
			log.Debug("skipping window without colvar file", "path", colvar)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			colvar,
			cvgrid.FormatLambda(lx), cvgrid.FormatLambda(ly),
			cvgrid.FormatLambda(cfg.FCX), cvgrid.FormatLambda(cfg.FCY))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write metadata file: %w", err)
	}
	return f.Close()
}
