package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	blob     []byte
	storedAt time.Time
}

// Memory is an in-process backend with TTL expiration. A zero TTL keeps
// entries forever.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory creates an empty in-memory backend.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the blob stored under signature, or ErrNotFound when it is
// missing or older than the TTL.
func (m *Memory) Get(_ context.Context, signature string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[signature]
	if !ok || m.expired(entry) {
		return nil, ErrNotFound
	}
	return append([]byte(nil), entry.blob...), nil
}

// Put stores blob under signature, replacing any previous entry.
func (m *Memory) Put(_ context.Context, signature string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[signature] = memoryEntry{blob: append([]byte(nil), blob...), storedAt: m.now()}
	return nil
}

// Purge drops entries stored before the given time.
func (m *Memory) Purge(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for sig, entry := range m.entries {
		if entry.storedAt.Before(before) {
			delete(m.entries, sig)
			n++
		}
	}
	return n, nil
}

// Stats reports the live entries.
func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := Stats{Backend: "memory"}
	for _, entry := range m.entries {
		if m.expired(entry) {
			continue
		}
		stats.Entries++
		if entry.storedAt.After(stats.LastWrite) {
			stats.LastWrite = entry.storedAt
		}
	}
	return stats, nil
}

func (m *Memory) expired(entry memoryEntry) bool {
	return m.ttl > 0 && m.now().Sub(entry.storedAt) >= m.ttl
}
