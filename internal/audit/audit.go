// Package audit implements an optional, write-only run ledger backed by
// SQLite: a durable record of node state transitions and live resource-
// handle counts for a pipeline run, for post-hoc inspection. It is
// strictly a diagnostic sink, never consulted to make a decision during
// a run — not a cache, not a checkpoint/resume mechanism.
package audit

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/divvun/divvun-pipeline/internal/diag"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS node_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	time TEXT NOT NULL,
	kind TEXT NOT NULL,
	path TEXT,
	module TEXT,
	resource TEXT,
	error TEXT
);
CREATE TABLE IF NOT EXISTS live_handle_samples (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	time TEXT NOT NULL,
	count INTEGER NOT NULL
);
`

// Ledger is a SQLite-backed audit sink, opened once per host process and
// shared across however many pipeline runs it performs.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if necessary) the ledger database at path and
// runs its migration.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: migrate %s: %w", path, err)
	}
	return &Ledger{db: db}, nil
}

// ForRun returns a diag.Sink scoped to one run's events, tagging every
// row with runID so a shared ledger file can hold many runs' history.
func (l *Ledger) ForRun(runID string) diag.Sink {
	return &runSink{ledger: l, runID: runID}
}

// RecordLiveHandles samples the module registry's live resource-handle
// count, for later auditing that a run tore down cleanly (zero live
// handles at the end).
func (l *Ledger) RecordLiveHandles(runID string, count int) error {
	_, err := l.db.Exec(
		`INSERT INTO live_handle_samples (run_id, time, count) VALUES (?, ?, ?)`,
		runID, time.Now().Format(time.RFC3339Nano), count,
	)
	if err != nil {
		return fmt.Errorf("audit: record live handles: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// runSink is the diag.Sink a single run writes through. Only node
// lifecycle events are persisted; module-load and resource events pass
// through diag's other sinks (NDJSON, human) but aren't audited, since
// they're not part of the "did this run complete cleanly" question the
// ledger answers.
type runSink struct {
	ledger *Ledger
	runID  string
}

func (s *runSink) Emit(e diag.Event) {
	switch e.Kind {
	case diag.KindNodeStarted, diag.KindNodeSucceeded, diag.KindNodeFailed:
	default:
		return
	}

	_, _ = s.ledger.db.Exec(
		`INSERT INTO node_events (run_id, time, kind, path, module, resource, error) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.runID, e.Time.Format(time.RFC3339Nano), string(e.Kind), e.Path, e.Module, e.Resource, e.Error,
	)
}
