package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/intake/intake/internal/flow"
)

const keyPrefix = "intake:session:"

// SnapshotStore caches serialized session snapshots in Redis so an active
// questionnaire can be rehydrated without replaying its response log. The
// database log remains the source of truth; a cache miss is not an error.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis using a URL of the form redis://host:port/db.
func New(ctx context.Context, redisURL string, ttl time.Duration) (*SnapshotStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewFromClient(client, ttl), nil
}

// NewFromClient wraps an existing client, used by tests.
func NewFromClient(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

// Put stores the snapshot under the session id, refreshing the TTL.
func (s *SnapshotStore) Put(ctx context.Context, sessionID string, snap *flow.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+sessionID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("cache snapshot: %w", err)
	}
	return nil
}

// Get returns the cached snapshot, or nil on a cache miss.
func (s *SnapshotStore) Get(ctx context.Context, sessionID string) (*flow.Snapshot, error) {
	data, err := s.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap flow.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// Delete drops the cached snapshot, e.g. when a session completes or is
// abandoned.
func (s *SnapshotStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, keyPrefix+sessionID).Err()
}

// Close releases the underlying client.
func (s *SnapshotStore) Close() error {
	return s.client.Close()
}
