package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local Cache. Expired entries are reaped lazily on
// access, which is enough for the small key space of a cooldown guard.
type Memory struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemory creates an in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *Memory) SetNX(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if deadline, ok := m.entries[key]; ok && now.Before(deadline) {
		return false, nil
	}
	m.entries[key] = now.Add(ttl)

	// Opportunistic cleanup.
	for k, deadline := range m.entries {
		if now.After(deadline) {
			delete(m.entries, k)
		}
	}
	return true, nil
}

func (m *Memory) Close() error {
	return nil
}
