// Package model holds the persistent record types of an adaptive umbrella
// run.
package model

import (
	"math"
	"time"

	"github.com/danijoo/adaptiveumbrella/internal/cvgrid"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunStatus is the lifecycle state of a run record.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusFinished RunStatus = "finished"
	RunStatusFailed   RunStatus = "failed"
)

// RunRecord describes one adaptive umbrella run.
type RunRecord struct {
	VersionedRecord
	ID             string      `json:"id"`
	Status         RunStatus   `json:"status"`
	Defs           cvgrid.Defs `json:"cvs"`
	RootLambdas    [2]float64  `json:"root_lambdas"`
	MaxIterations  int         `json:"max_iterations"`
	Iterations     int         `json:"iterations"`
	SampledWindows int         `json:"sampled_windows"`
	Error          string      `json:"error,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// IterationRecord describes one PMF-update cycle within a run.
type IterationRecord struct {
	VersionedRecord
	RunID        string     `json:"run_id"`
	Iteration    int        `json:"iteration"`
	FrontierSize int        `json:"frontier_size"`
	NewWindows   int        `json:"new_windows"`
	SampledTotal int        `json:"sampled_total"`
	Bounds       [4]float64 `json:"bounds"` // min-x, min-y, max-x, max-y
	FiniteCells  int        `json:"finite_cells"`
	MinEnergy    float64    `json:"min_energy"`
}

// PMFCell is one finite cell of a PMF snapshot. Snapshots are sparse:
// unknown (+Inf) cells are implicit, which also keeps the JSON codec free of
// non-encodable infinities.
type PMFCell struct {
	IX int     `json:"ix"`
	IY int     `json:"iy"`
	E  float64 `json:"e"`
}

// PMFSnapshot is the PMF surface after one update cycle.
type PMFSnapshot struct {
	VersionedRecord
	RunID     string      `json:"run_id"`
	Iteration int         `json:"iteration"`
	Defs      cvgrid.Defs `json:"cvs"`
	Cells     []PMFCell   `json:"cells"`
}

// SnapshotFromGrid collects the finite cells of pmf into a sparse snapshot.
func SnapshotFromGrid(runID string, iteration int, defs cvgrid.Defs, pmf *cvgrid.Grid) PMFSnapshot {
	snap := PMFSnapshot{RunID: runID, Iteration: iteration, Defs: defs}
	nx, ny := pmf.Shape()
	for ix := 0; ix < nx; ix++ {
		for iy := 0; iy < ny; iy++ {
			e := pmf.At(ix, iy)
			if !math.IsInf(e, 0) && !math.IsNaN(e) {
				snap.Cells = append(snap.Cells, PMFCell{IX: ix, IY: iy, E: e})
			}
		}
	}
	return snap
}

// Grid rebuilds the dense PMF surface from the snapshot, with +Inf in every
// cell the snapshot does not cover.
func (s PMFSnapshot) Grid() (*cvgrid.Grid, error) {
	if err := s.Defs.Validate(); err != nil {
		return nil, err
	}
	grid := cvgrid.NewGridFor(s.Defs)
	grid.Fill(math.Inf(1))
	for _, c := range s.Cells {
		if !grid.InBounds(c.IX, c.IY) {
			continue
		}
		grid.Set(c.IX, c.IY, c.E)
	}
	return grid, nil
}
