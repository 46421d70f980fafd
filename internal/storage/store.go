package storage

import (
	"context"

	"github.com/danijoo/adaptiveumbrella/internal/model"
)

// Store defines persistence operations for umbrella run history: run
// records, per-iteration diagnostics, and sparse PMF snapshots.
type Store interface {
	Init(ctx context.Context) error
	// Reset drops all persisted run history.
	Reset(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveIteration(ctx context.Context, record model.IterationRecord) error
	ListIterations(ctx context.Context, runID string) ([]model.IterationRecord, error)
	SavePMFSnapshot(ctx context.Context, snapshot model.PMFSnapshot) error
	GetPMFSnapshot(ctx context.Context, runID string, iteration int) (model.PMFSnapshot, bool, error)
	LatestPMFSnapshot(ctx context.Context, runID string) (model.PMFSnapshot, bool, error)
}
