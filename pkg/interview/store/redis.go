package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voxprep/voxprep/pkg/interview"
)

const redisKeyPrefix = "voxprep:progress:"

// RedisStore persists progress snapshots in Redis with a TTL matching the
// recovery window, so stale snapshots expire without a sweeper.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a store on the given client. Snapshots older than ttl
// expire server-side; pass the recovery window.
func NewRedis(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(sessionID string) string {
	return redisKeyPrefix + sessionID
}

// Get returns the snapshot for sessionID, or ErrSnapshotNotFound.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (interview.Snapshot, error) {
	raw, err := s.client.Get(ctx, redisKey(sessionID)).Result()
	if err == redis.Nil {
		return interview.Snapshot{}, interview.ErrSnapshotNotFound
	}
	if err != nil {
		return interview.Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}

	var snap interview.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return interview.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Put writes the snapshot and refreshes its TTL.
func (s *RedisStore) Put(ctx context.Context, sessionID string, snap interview.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Delete removes the snapshot. Deleting a missing snapshot is not an error.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, redisKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
