// Package history persists build reports in a local SQLite database so past
// builds can be inspected after the fact (`relpack history`).
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/relpack/internal/pipeline"
)

// Entry is the condensed per-build row returned by listings. The full report
// stays in the payload column and is only decoded on demand.
type Entry struct {
	BuildID   string
	Target    string
	Outcome   pipeline.BuildOutcome
	Processed uint
	Failed    int
	Started   time.Time
	Finished  time.Time
}

// Store records finished builds in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore opens (and initializes) the database at dbPath.
// Use ":memory:" for an in-memory store.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL UNIQUE,
		target TEXT NOT NULL,
		outcome TEXT NOT NULL,
		processed INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		started INTEGER NOT NULL,
		finished INTEGER NOT NULL,
		report BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_target ON builds(target);
	CREATE INDEX IF NOT EXISTS idx_builds_started ON builds(started);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores one finished build report.
func (s *Store) Record(ctx context.Context, report *pipeline.BuildReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO builds (build_id, target, outcome, processed, failed, started, finished, report) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		report.BuildID, report.Target, string(report.Outcome), report.Processed, report.Failed,
		report.Start.Unix(), report.End.Unix(), payload,
	)
	if err != nil {
		return fmt.Errorf("insert build: %w", err)
	}
	return nil
}

// Recent returns up to limit builds, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT build_id, target, outcome, processed, failed, started, finished FROM builds ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var outcome string
		var started, finished int64
		if err := rows.Scan(&e.BuildID, &e.Target, &outcome, &e.Processed, &e.Failed, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		e.Outcome = pipeline.BuildOutcome(outcome)
		e.Started = time.Unix(started, 0)
		e.Finished = time.Unix(finished, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return entries, nil
}

// Get returns the full report for one build ID, or sql.ErrNoRows.
func (s *Store) Get(ctx context.Context, buildID string) (*pipeline.BuildReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload []byte
	err := s.db.QueryRowContext(ctx, "SELECT report FROM builds WHERE build_id = ?", buildID).Scan(&payload)
	if err != nil {
		return nil, fmt.Errorf("query build %s: %w", buildID, err)
	}
	var report pipeline.BuildReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &report, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
