// Package store provides ProgressStore implementations: SQLite for local
// single-process runs, Redis for shared deployments, and an in-memory store
// for tests.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/voxprep/voxprep/pkg/interview"
)

// SQLiteStore persists progress snapshots in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the progress database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open progress database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS interview_progress (
		session_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		snapshot TEXT NOT NULL,
		saved_at DATETIME NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create progress table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewSQLite wraps an existing database handle. The caller owns the handle.
func NewSQLite(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get returns the snapshot for sessionID, or ErrSnapshotNotFound.
func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (interview.Snapshot, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM interview_progress WHERE session_id = ?`, sessionID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return interview.Snapshot{}, interview.ErrSnapshotNotFound
	}
	if err != nil {
		return interview.Snapshot{}, fmt.Errorf("query snapshot: %w", err)
	}

	var snap interview.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return interview.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Put writes the snapshot, replacing any previous one for the session.
func (s *SQLiteStore) Put(ctx context.Context, sessionID string, snap interview.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO interview_progress (session_id, user_id, snapshot, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			user_id = excluded.user_id,
			snapshot = excluded.snapshot,
			saved_at = excluded.saved_at`,
		sessionID, snap.UserID, string(raw), savedAt)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Delete removes the snapshot. Deleting a missing snapshot is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM interview_progress WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// PurgeOlderThan removes snapshots saved before the cutoff. Used by the
// recovery daemon to keep the table from accumulating abandoned rows.
func (s *SQLiteStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM interview_progress WHERE saved_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge snapshots: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
