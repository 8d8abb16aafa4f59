package calendar

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// FiredStore records which reminders have fired. Claim succeeds at most once
// per owner and reminder.
type FiredStore interface {
	Claim(ctx context.Context, ownerID, reminderID string) (bool, error)
	Fired(ctx context.Context, ownerID, reminderID string) (bool, error)
}

// MemoryFiredStore keeps fired reminders in process memory.
type MemoryFiredStore struct {
	mu    sync.Mutex
	fired map[string]struct{}
}

// NewMemoryFiredStore creates an empty store.
func NewMemoryFiredStore() *MemoryFiredStore {
	return &MemoryFiredStore{fired: make(map[string]struct{})}
}

// Claim implements FiredStore.
func (m *MemoryFiredStore) Claim(_ context.Context, ownerID, reminderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ownerID + ":" + reminderID
	if _, ok := m.fired[key]; ok {
		return false, nil
	}
	m.fired[key] = struct{}{}
	return true, nil
}

// Fired implements FiredStore.
func (m *MemoryFiredStore) Fired(_ context.Context, ownerID, reminderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.fired[ownerID+":"+reminderID]
	return ok, nil
}

const firedKeyPrefix = "finora:reminder:fired"

// RedisFiredStore keeps fired markers in Redis so a restarted session does
// not fire the same reminder again.
type RedisFiredStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisFiredStore creates a store whose markers expire after ttl.
func NewRedisFiredStore(client *redis.Client, ttl time.Duration) *RedisFiredStore {
	return &RedisFiredStore{client: client, ttl: ttl}
}

func firedKey(ownerID, reminderID string) string {
	return firedKeyPrefix + ":" + ownerID + ":" + reminderID
}

// Claim implements FiredStore with SETNX.
func (r *RedisFiredStore) Claim(ctx context.Context, ownerID, reminderID string) (bool, error) {
	return r.client.SetNX(ctx, firedKey(ownerID, reminderID), time.Now().Unix(), r.ttl).Result()
}

// Fired implements FiredStore.
func (r *RedisFiredStore) Fired(ctx context.Context, ownerID, reminderID string) (bool, error) {
	n, err := r.client.Exists(ctx, firedKey(ownerID, reminderID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
