package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// ErrAssessmentNotFound is returned by Store.Get for unknown ids.
var ErrAssessmentNotFound = errors.New("feedback: assessment not found")

// SQLiteStore persists assessments in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the assessment database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open assessment database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS assessments (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create assessments table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewSQLite wraps an existing database handle. The caller owns the handle.
func NewSQLite(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Assessment, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM assessments WHERE id = ?`, id,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return Assessment{}, ErrAssessmentNotFound
	}
	if err != nil {
		return Assessment{}, fmt.Errorf("query assessment: %w", err)
	}

	var a Assessment
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return Assessment{}, fmt.Errorf("decode assessment: %w", err)
	}
	return a, nil
}

func (s *SQLiteStore) Put(ctx context.Context, a Assessment) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode assessment: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assessments (id, session_id, user_id, body, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			session_id = excluded.session_id,
			user_id = excluded.user_id,
			body = excluded.body,
			created_at = excluded.created_at`,
		a.ID, a.SessionID, a.UserID, string(raw), a.CreatedAt)
	if err != nil {
		return fmt.Errorf("write assessment: %w", err)
	}
	return nil
}

// GetBySession returns the most recent assessment for a session and user.
func (s *SQLiteStore) GetBySession(ctx context.Context, sessionID, userID string) (Assessment, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM assessments
		WHERE session_id = ? AND user_id = ?
		ORDER BY created_at DESC LIMIT 1`,
		sessionID, userID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return Assessment{}, ErrAssessmentNotFound
	}
	if err != nil {
		return Assessment{}, fmt.Errorf("query assessment: %w", err)
	}

	var a Assessment
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return Assessment{}, fmt.Errorf("decode assessment: %w", err)
	}
	return a, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// MemoryStore is an in-process assessment store for tests.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Assessment
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{items: make(map[string]Assessment)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.items[id]
	if !ok {
		return Assessment{}, ErrAssessmentNotFound
	}
	return a, nil
}

func (s *MemoryStore) GetBySession(ctx context.Context, sessionID, userID string) (Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best Assessment
	found := false
	for _, a := range s.items {
		if a.SessionID != sessionID || a.UserID != userID {
			continue
		}
		if !found || a.CreatedAt.After(best.CreatedAt) {
			best = a
			found = true
		}
	}
	if !found {
		return Assessment{}, ErrAssessmentNotFound
	}
	return best, nil
}

func (s *MemoryStore) Put(ctx context.Context, a Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[a.ID] = a
	return nil
}
