//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/danijoo/adaptiveumbrella/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS iterations (
			run_id TEXT NOT NULL,
			iteration INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (run_id, iteration)
		)`,
		`CREATE TABLE IF NOT EXISTS pmf_snapshots (
			run_id TEXT NOT NULL,
			iteration INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (run_id, iteration)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	for _, table := range []string{"runs", "iterations", "pmf_snapshots"} {
		if _, err := db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("sqlite store is not initialized")
	}
	return s.db, nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run model.RunRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeRun(run)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at = excluded.created_at,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, run.ID, run.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"), run.SchemaVersion, run.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (model.RunRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.RunRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RunRecord{}, false, nil
		}
		return model.RunRecord{}, false, err
	}

	run, err := DecodeRun(payload)
	if err != nil {
		return model.RunRecord{}, false, fmt.Errorf("decode run %s: %w", id, err)
	}
	return run, true, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]model.RunRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT payload FROM runs ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.RunRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		run, err := DecodeRun(payload)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) SaveIteration(ctx context.Context, record model.IterationRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeIteration(record)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO iterations (run_id, iteration, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id, iteration) DO UPDATE SET
			payload = excluded.payload
	`, record.RunID, record.Iteration, payload)
	return err
}

func (s *SQLiteStore) ListIterations(ctx context.Context, runID string) ([]model.IterationRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT payload FROM iterations WHERE run_id = ? ORDER BY iteration`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.IterationRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		record, err := DecodeIteration(payload)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) SavePMFSnapshot(ctx context.Context, snapshot model.PMFSnapshot) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodePMFSnapshot(snapshot)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO pmf_snapshots (run_id, iteration, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id, iteration) DO UPDATE SET
			payload = excluded.payload
	`, snapshot.RunID, snapshot.Iteration, payload)
	return err
}

func (s *SQLiteStore) GetPMFSnapshot(ctx context.Context, runID string, iteration int) (model.PMFSnapshot, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.PMFSnapshot{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM pmf_snapshots WHERE run_id = ? AND iteration = ?`, runID, iteration).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.PMFSnapshot{}, false, nil
		}
		return model.PMFSnapshot{}, false, err
	}

	snapshot, err := DecodePMFSnapshot(payload)
	if err != nil {
		return model.PMFSnapshot{}, false, fmt.Errorf("decode pmf snapshot %s/%d: %w", runID, iteration, err)
	}
	return snapshot, true, nil
}

func (s *SQLiteStore) LatestPMFSnapshot(ctx context.Context, runID string) (model.PMFSnapshot, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.PMFSnapshot{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `
		SELECT payload FROM pmf_snapshots
		WHERE run_id = ?
		ORDER BY iteration DESC
		LIMIT 1
	`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.PMFSnapshot{}, false, nil
		}
		return model.PMFSnapshot{}, false, err
	}

	snapshot, err := DecodePMFSnapshot(payload)
	if err != nil {
		return model.PMFSnapshot{}, false, fmt.Errorf("decode latest pmf snapshot %s: %w", runID, err)
	}
	return snapshot, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}
