package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/sma-adp-admin/internal/dashboard"
	appErrors "github.com/noah-isme/sma-adp-admin/pkg/errors"
)

const sessionKeyPrefix = "dashboard:session:"

// RedisSessionRepository keeps page state in Redis so any replica can serve
// the session.
type RedisSessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionRepository constructs a Redis backed session store.
func NewRedisSessionRepository(client *redis.Client, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{client: client, ttl: ttl}
}

// Load returns the state for id or ErrSessionNotFound.
func (r *RedisSessionRepository) Load(ctx context.Context, id string) (*dashboard.State, error) {
	raw, err := r.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var state dashboard.State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, appErrors.ErrSessionNotFound
	}
	state.Normalize()
	return &state, nil
}

// Save stores state for id and refreshes its expiry.
func (r *RedisSessionRepository) Save(ctx context.Context, id string, state *dashboard.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKeyPrefix+id, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Delete removes the session.
func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemorySessionRepository is the single-process session store used when Redis
// is disabled. States are stored encoded so callers never share memory.
type MemorySessionRepository struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

// NewMemorySessionRepository constructs an in-memory session store.
func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

// Load returns the state for id or ErrSessionNotFound once it expired.
func (r *MemorySessionRepository) Load(_ context.Context, id string) (*dashboard.State, error) {
	r.mu.Lock()
	entry, ok := r.entries[id]
	if ok && r.ttl > 0 && r.now().After(entry.expiresAt) {
		delete(r.entries, id)
		ok = false
	}
	r.mu.Unlock()
	if !ok {
		return nil, appErrors.ErrSessionNotFound
	}

	var state dashboard.State
	if err := json.Unmarshal(entry.payload, &state); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	state.Normalize()
	return &state, nil
}

// Save stores state for id.
func (r *MemorySessionRepository) Save(_ context.Context, id string, state *dashboard.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = memoryEntry{payload: payload, expiresAt: r.now().Add(r.ttl)}
	return nil
}

// Delete removes the session.
func (r *MemorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (r *MemorySessionRepository) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	removed := 0
	for id, entry := range r.entries {
		if r.ttl > 0 && now.After(entry.expiresAt) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}
