package store

import (
	"context"
	"sync"

	"github.com/voxprep/voxprep/pkg/interview"
)

// MemoryStore is an in-process ProgressStore for tests and ephemeral runs.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]interview.Snapshot
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]interview.Snapshot)}
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (interview.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[sessionID]
	if !ok {
		return interview.Snapshot{}, interview.ErrSnapshotNotFound
	}
	return snap, nil
}

func (s *MemoryStore) Put(ctx context.Context, sessionID string, snap interview.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[sessionID] = snap
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, sessionID)
	return nil
}

// Len reports the number of stored snapshots.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snaps)
}
