// Package session persists each browser session's staged upload between
// requests, so the resolver can be rebuilt on the next interaction.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/damacus/iron-transfer/internal/resolver"
)

// DefaultTTL bounds how long an undecided upload is kept
const DefaultTTL = 30 * time.Minute

// Store keeps at most one pending upload per session id
type Store interface {
	// Load returns nil, nil when the session has nothing staged.
	Load(ctx context.Context, id string) (*resolver.PendingUpload, error)
	// Save replaces the staged upload; nil clears it.
	Save(ctx context.Context, id string, pending *resolver.PendingUpload) error
	Delete(ctx context.Context, id string) error
}

// NewID returns a fresh random session id
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like one produced by NewID
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type entry struct {
	pending *resolver.PendingUpload
	expires time.Time
}

// MemoryStore is a Store held in process memory
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryStore returns an empty store; ttl <= 0 uses DefaultTTL
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Load(_ context.Context, id string) (*resolver.PendingUpload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	if s.now().After(e.expires) {
		delete(s.entries, id)
		return nil, nil
	}
	return clonePending(e.pending), nil
}

func (s *MemoryStore) Save(_ context.Context, id string, pending *resolver.PendingUpload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pending == nil {
		delete(s.entries, id)
		return nil
	}
	s.entries[id] = entry{pending: clonePending(pending), expires: s.now().Add(s.ttl)}
	s.sweepLocked()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
	return nil
}

func (s *MemoryStore) sweepLocked() {
	now := s.now()
	for id, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, id)
		}
	}
}

func clonePending(p *resolver.PendingUpload) *resolver.PendingUpload {
	if p == nil {
		return nil
	}
	return &resolver.PendingUpload{
		FileName: p.FileName,
		Content:  append([]byte(nil), p.Content...),
		MimeType: p.MimeType,
	}
}

func encodePending(p *resolver.PendingUpload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pending upload: %w", err)
	}
	return data, nil
}

func decodePending(data []byte) (*resolver.PendingUpload, error) {
	var p resolver.PendingUpload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode pending upload: %w", err)
	}
	return &p, nil
}

var _ Store = (*MemoryStore)(nil)

// Backend names accepted by Open
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Open builds the Store named by backend
func Open(ctx context.Context, backend string, redisCfg RedisConfig, ttl time.Duration) (Store, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemoryStore(ttl), nil
	case BackendRedis:
		return NewRedisStore(ctx, redisCfg, ttl)
	}
	return nil, fmt.Errorf("unknown session backend %q", backend)
}
