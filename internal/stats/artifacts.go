// Package stats writes per-run artifact directories: a JSON run index, CSV
// exports of the PMF surface, and rendered heatmaps.
package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/danijoo/adaptiveumbrella/internal/cvgrid"
)

const runIndexFile = "run_index.json"

// RunIndexEntry is one line of the artifact root's run index.
type RunIndexEntry struct {
	RunID          string `json:"run_id"`
	Status         string `json:"status"`
	Iterations     int    `json:"iterations"`
	SampledWindows int    `json:"sampled_windows"`
	CreatedAtUTC   string `json:"created_at_utc"`
}

// RunDir returns (and creates) the artifact directory of a run.
func RunDir(baseDir, runID string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}
	dir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// AppendRunIndex inserts or updates the entry for a run in the artifact
// root's index file.
func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}
	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}
	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the run index entries, newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}
	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAtUTC > entries[j].CreatedAtUTC
	})
	return entries, nil
}

// WritePMFCSV exports the PMF surface for one iteration as an x,y,e table.
// Cells with unknown energy are written as "inf" so the export stays
// loss-free.
func WritePMFCSV(runDir string, iteration int, defs cvgrid.Defs, pmf *cvgrid.Grid) (string, error) {
	path := filepath.Join(runDir, fmt.Sprintf("pmf_%d.csv", iteration))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"x", "y", "e"}); err != nil {
		return "", err
	}
	nx, ny := pmf.Shape()
	for ix := 0; ix < nx; ix++ {
		for iy := 0; iy < ny; iy++ {
			lx, ly := defs.Lambdas(ix, iy)
			e := pmf.At(ix, iy)
			var field string
			if math.IsInf(e, 1) {
				field = "inf"
			} else {
				field = strconv.FormatFloat(e, 'g', -1, 64)
			}
			if err := w.Write([]string{
				cvgrid.FormatLambda(lx),
				cvgrid.FormatLambda(ly),
				field,
			}); err != nil {
				return "", err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, f.Close()
}

// ExportRunArtifacts copies a run's artifact directory into outDir and
// returns the destination directory.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	src := filepath.Join(baseDir, runID)
	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("run artifacts not found for %s: %w", runID, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("run artifacts path is not a directory: %s", src)
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(src, entry.Name()))
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(filepath.Join(dst, entry.Name()), data, 0o644); err != nil {
			return "", err
		}
	}
	return dst, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
