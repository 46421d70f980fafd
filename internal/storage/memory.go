package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/danijoo/adaptiveumbrella/internal/model"
)

type snapshotKey struct {
	runID     string
	iteration int
}

type MemoryStore struct {
	mu         sync.RWMutex
	runs       map[string]model.RunRecord
	iterations map[string][]model.IterationRecord
	snapshots  map[snapshotKey]model.PMFSnapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = make(map[string]model.RunRecord)
	s.iterations = make(map[string][]model.IterationRecord)
	s.snapshots = make(map[snapshotKey]model.PMFSnapshot)
	return nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	return s.Init(ctx)
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.Before(runs[j].CreatedAt)
	})
	return runs, nil
}

func (s *MemoryStore) SaveIteration(_ context.Context, record model.IterationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.iterations[record.RunID]
	for i, existing := range records {
		if existing.Iteration == record.Iteration {
			records[i] = record
			return nil
		}
	}
	s.iterations[record.RunID] = append(records, record)
	return nil
}

func (s *MemoryStore) ListIterations(_ context.Context, runID string) ([]model.IterationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := append([]model.IterationRecord(nil), s.iterations[runID]...)
	sort.Slice(records, func(i, j int) bool {
		return records[i].Iteration < records[j].Iteration
	})
	return records, nil
}

func (s *MemoryStore) SavePMFSnapshot(_ context.Context, snapshot model.PMFSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[snapshotKey{snapshot.RunID, snapshot.Iteration}] = snapshot
	return nil
}

func (s *MemoryStore) GetPMFSnapshot(_ context.Context, runID string, iteration int) (model.PMFSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[snapshotKey{runID, iteration}]
	return snapshot, ok, nil
}

func (s *MemoryStore) LatestPMFSnapshot(_ context.Context, runID string) (model.PMFSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest model.PMFSnapshot
	found := false
	for key, snapshot := range s.snapshots {
		if key.runID != runID {
			continue
		}
		if !found || snapshot.Iteration > latest.Iteration {
			latest = snapshot
			found = true
		}
	}
	return latest, found, nil
}
