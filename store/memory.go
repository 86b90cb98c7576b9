package store

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	memoryMaxEntries = 4096
	// memoryBackstopTTL bounds the lifetime of entries written without an
	// expiry; per-key deadlines are enforced on read.
	memoryBackstopTTL = 24 * time.Hour
)

type memoryEntry struct {
	value    []byte
	deadline time.Time // zero when the key does not expire
}

// Memory is an in-process Store used when no redis is configured and in
// tests. Size and worst-case lifetime are bounded by an expirable LRU.
type Memory struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, memoryEntry]
	now   func() time.Time
}

// NewMemory builds an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		cache: expirable.NewLRU[string, memoryEntry](memoryMaxEntries, nil, memoryBackstopTTL),
		now:   time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.cache.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.deadline.IsZero() && m.now().After(entry.deadline) {
		m.cache.Remove(key)
		return nil, ErrNotFound
	}
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	owned := make([]byte, len(value))
	copy(owned, value)

	entry := memoryEntry{value: owned}
	if ttl > 0 {
		entry.deadline = m.now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Add(key, entry)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Remove(key)
	return nil
}
