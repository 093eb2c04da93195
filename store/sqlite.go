// ABOUTME: SQLite-backed history of captured errors and fix attempts per project.
// ABOUTME: A queryable record for diagnostics, rebuildable from scratch; never the live capture state.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
	"github.com/vitrine-labs/vitrine/autofix"
	"github.com/vitrine-labs/vitrine/capture"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

// FixRecord is one completed or failed fix attempt.
type FixRecord struct {
	ID             string
	ProjectID      string
	Status         autofix.Status
	Message        string
	PatchesApplied int
	FilesModified  []string
	StartedAt      time.Time
	FinishedAt     time.Time
}

// History is a SQLite-backed record of errors and fix attempts. The live
// capture set stays in memory; this table exists so a project's error
// history survives workspace teardown and can be inspected later.
type History struct {
	db *sql.DB
}

// Open opens or creates the history database at the given path and runs
// migrations.
func Open(path string) (*History, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS errors (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			source TEXT NOT NULL,
			message TEXT NOT NULL,
			file TEXT NOT NULL DEFAULT '',
			line INTEGER NOT NULL DEFAULT 0,
			col INTEGER NOT NULL DEFAULT 0,
			stack TEXT NOT NULL DEFAULT '',
			severity TEXT NOT NULL,
			count INTEGER NOT NULL DEFAULT 1,
			resolved INTEGER NOT NULL DEFAULT 0,
			captured_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_errors_project ON errors(project_id, captured_at);

		CREATE TABLE IF NOT EXISTS fixes (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			status TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			patches_applied INTEGER NOT NULL DEFAULT 0,
			files_modified TEXT NOT NULL DEFAULT '[]',
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_fixes_project ON fixes(project_id, started_at);`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &History{db: db}, nil
}

// Close closes the database connection.
func (h *History) Close() error {
	return h.db.Close()
}

// RecordError upserts one captured error. Repeat captures of the same id
// update the duplicate count and resolved flag in place.
func (h *History) RecordError(projectID string, e capture.Error) error {
	resolved := 0
	if e.Resolved {
		resolved = 1
	}
	_, err := h.db.Exec(
		`INSERT INTO errors (id, project_id, source, message, file, line, col, stack, severity, count, resolved, captured_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			count = excluded.count,
			resolved = excluded.resolved`,
		e.ID, projectID, string(e.Source), e.Message, e.File, e.Line, e.Column,
		e.Stack, string(e.Severity), e.Count, resolved, e.Timestamp.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("upsert error: %w", err)
	}
	return nil
}

// MarkResolved flips every recorded error for a project to resolved. Called
// after a successful fix clears the live set.
func (h *History) MarkResolved(projectID string) error {
	if _, err := h.db.Exec(`UPDATE errors SET resolved = 1 WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("mark resolved: %w", err)
	}
	return nil
}

// RecentErrors returns up to limit errors for a project, newest first.
func (h *History) RecentErrors(projectID string, limit int) ([]capture.Error, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := h.db.Query(
		`SELECT id, source, message, file, line, col, stack, severity, count, resolved, captured_at
		 FROM errors WHERE project_id = ?
		 ORDER BY captured_at DESC LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("query errors: %w", err)
	}
	defer rows.Close()

	var out []capture.Error
	for rows.Next() {
		var e capture.Error
		var source, severity, capturedAt string
		var resolved int
		if err := rows.Scan(&e.ID, &source, &e.Message, &e.File, &e.Line, &e.Column,
			&e.Stack, &severity, &e.Count, &resolved, &capturedAt); err != nil {
			return nil, fmt.Errorf("scan error row: %w", err)
		}
		e.Source = capture.Source(source)
		e.Severity = capture.Severity(severity)
		e.Resolved = resolved != 0
		e.Timestamp, _ = time.Parse(timeFormat, capturedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// RecordFix inserts one fix attempt. A missing id gets a fresh ULID.
func (h *History) RecordFix(rec FixRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = ulid.Make().String()
	}
	files, err := json.Marshal(rec.FilesModified)
	if err != nil {
		return "", fmt.Errorf("encode files_modified: %w", err)
	}
	_, err = h.db.Exec(
		`INSERT INTO fixes (id, project_id, status, message, patches_applied, files_modified, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ProjectID, string(rec.Status), rec.Message, rec.PatchesApplied,
		string(files), rec.StartedAt.Format(timeFormat), rec.FinishedAt.Format(timeFormat),
	)
	if err != nil {
		return "", fmt.Errorf("insert fix: %w", err)
	}
	return rec.ID, nil
}

// Fixes returns up to limit fix attempts for a project, newest first.
func (h *History) Fixes(projectID string, limit int) ([]FixRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.Query(
		`SELECT id, project_id, status, message, patches_applied, files_modified, started_at, finished_at
		 FROM fixes WHERE project_id = ?
		 ORDER BY started_at DESC LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("query fixes: %w", err)
	}
	defer rows.Close()

	var out []FixRecord
	for rows.Next() {
		var rec FixRecord
		var status, files, started, finished string
		if err := rows.Scan(&rec.ID, &rec.ProjectID, &status, &rec.Message,
			&rec.PatchesApplied, &files, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan fix row: %w", err)
		}
		rec.Status = autofix.Status(status)
		if err := json.Unmarshal([]byte(files), &rec.FilesModified); err != nil {
			return nil, fmt.Errorf("decode files_modified: %w", err)
		}
		rec.StartedAt, _ = time.Parse(timeFormat, started)
		rec.FinishedAt, _ = time.Parse(timeFormat, finished)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Purge deletes all history for a project.
func (h *History) Purge(projectID string) error {
	if _, err := h.db.Exec(`DELETE FROM errors WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("purge errors: %w", err)
	}
	if _, err := h.db.Exec(`DELETE FROM fixes WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("purge fixes: %w", err)
	}
	return nil
}
