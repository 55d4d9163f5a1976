// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// HistoryStore keeps past run records in SQLite.
type HistoryStore struct {
	db *sql.DB
}

// HistoryEntry is one row of the run history.
type HistoryEntry struct {
	ID              string
	StartedAt       time.Time
	Duration        time.Duration
	ExitCode        int
	FailedStage     Stage
	CoveragePercent float64
	Provisioned     bool
}

// OpenHistory opens (creating if needed) the history database at path.
func OpenHistory(path string) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	db.SetMaxOpenConns(1)

	h := &HistoryStore{db: db}
	if err := h.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

func (h *HistoryStore) initialize() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		exit_code INTEGER NOT NULL,
		failed_stage TEXT,
		coverage_percent REAL,
		provisioned INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE TABLE IF NOT EXISTS stages (
		run_id TEXT NOT NULL REFERENCES runs(id),
		position INTEGER NOT NULL,
		stage TEXT NOT NULL,
		state TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		error TEXT,
		PRIMARY KEY (run_id, position)
	);
	`
	if _, err := h.db.Exec(schema); err != nil {
		return fmt.Errorf("initializing history schema: %w", err)
	}
	return nil
}

// Close releases the database.
func (h *HistoryStore) Close() error {
	return h.db.Close()
}

// Record stores rec and its stage rows in one transaction.
func (h *HistoryStore) Record(ctx context.Context, rec RunRecord) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning history transaction: %w", err)
	}
	defer tx.Rollback()

	var failed string
	for _, s := range rec.Stages {
		if s.State == StateFailed {
			failed = string(s.Stage)
			break
		}
	}
	var coverage sql.NullFloat64
	if rec.Coverage != nil {
		coverage = sql.NullFloat64{Float64: rec.Coverage.Percent, Valid: true}
	}
	provisioned := 0
	if rec.Environment != nil && rec.Environment.Provisioned {
		provisioned = 1
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, exit_code, failed_stage, coverage_percent, provisioned)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.StartedAt.UnixMilli(), rec.FinishedAt.UnixMilli(), rec.ExitCode,
		failed, coverage, provisioned,
	); err != nil {
		return fmt.Errorf("inserting run %s: %w", rec.ID, err)
	}
	for i, s := range rec.Stages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stages (run_id, position, stage, state, duration_ms, error) VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID, i, string(s.Stage), string(s.State), s.Duration.Milliseconds(), s.Error,
		); err != nil {
			return fmt.Errorf("inserting stage %s of run %s: %w", s.Stage, rec.ID, err)
		}
	}
	return tx.Commit()
}

// Recent returns up to limit runs, newest first.
func (h *HistoryStore) Recent(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, exit_code, COALESCE(failed_stage, ''), coverage_percent, provisioned
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var (
			e                 HistoryEntry
			started, finished int64
			failed            string
			coverage          sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &started, &finished, &e.ExitCode, &failed, &coverage, &e.Provisioned); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.StartedAt = time.UnixMilli(started)
		e.Duration = time.Duration(finished-started) * time.Millisecond
		e.FailedStage = Stage(failed)
		if coverage.Valid {
			e.CoveragePercent = coverage.Float64
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
