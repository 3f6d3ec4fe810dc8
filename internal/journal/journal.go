// Package journal persists approve/reject outcomes to a local SQLite
// database so reviewers keep an audit trail across sessions. The backend
// owns the authoritative match state; this journal is best-effort and a
// write failure never fails the decision that triggered it.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matchflow/matchflow/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Journal records decisions in SQLite.
type Journal struct {
	db     *sql.DB
	dbPath string
}

// New opens (or creates) the journal database at dbPath.
func New(dbPath string) (*Journal, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("journal path is required")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping journal database: %w", err)
	}

	return &Journal{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordDecision appends one decision to the journal.
func (j *Journal) RecordDecision(ctx context.Context, decision model.Decision) error {
	if decision.Action != model.ActionApprove && decision.Action != model.ActionReject {
		return fmt.Errorf("invalid decision action: %q", decision.Action)
	}

	decidedAt := decision.DecidedAt
	if decidedAt.IsZero() {
		decidedAt = time.Now()
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO decisions (project_id, row_index, suggestion_id, action, confidence, decided_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		decision.ProjectID,
		decision.RowIndex,
		decision.SuggestionID,
		string(decision.Action),
		decision.Confidence,
		decidedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}

	return nil
}

// ListRecent returns up to limit decisions, newest first.
func (j *Journal) ListRecent(ctx context.Context, limit int) ([]model.Decision, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT project_id, row_index, suggestion_id, action, confidence, decided_at
		 FROM decisions
		 ORDER BY decided_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var decisions []model.Decision
	for rows.Next() {
		var d model.Decision
		var action string
		if err := rows.Scan(&d.ProjectID, &d.RowIndex, &d.SuggestionID, &action, &d.Confidence, &d.DecidedAt); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		d.Action = model.DecisionAction(action)
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate decisions: %w", err)
	}

	return decisions, nil
}

// CountByAction returns how many journaled decisions exist per action for
// a project.
func (j *Journal) CountByAction(ctx context.Context, projectID string) (map[model.DecisionAction]int, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT action, COUNT(*) FROM decisions WHERE project_id = ? GROUP BY action`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to count decisions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[model.DecisionAction]int)
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("failed to scan decision count: %w", err)
		}
		counts[model.DecisionAction(action)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate decision counts: %w", err)
	}

	return counts, nil
}
