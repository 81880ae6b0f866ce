package cache

import (
	"context"
	"sync"
	"time"

	"github.com/cheluen/new-api-workers/internal/domain"
)

type memoryEntry struct {
	channels  []domain.Channel
	expiresAt time.Time
}

// Memory is an in-process ChannelCache. Reads vastly outnumber writes; a race
// between two requests refreshing the same entry is harmless since both write
// equivalent data.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory creates an in-memory channel cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// NewMemoryWithClock creates an in-memory cache with an injected clock so
// tests can control expiry deterministically.
func NewMemoryWithClock(now func() time.Time) *Memory {
	m := NewMemory()
	m.now = now
	return m
}

func (m *Memory) Get(_ context.Context, model string) ([]domain.Channel, bool) {
	m.mu.RLock()
	e, ok := m.entries[model]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, model)
		m.mu.Unlock()
		return nil, false
	}
	// Copy out so a caller mutating the result cannot corrupt the entry
	// other requests share.
	return append([]domain.Channel(nil), e.channels...), true
}

func (m *Memory) Set(_ context.Context, model string, channels []domain.Channel, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = m.now().Add(ttl)
	}
	cp := append([]domain.Channel(nil), channels...)
	m.mu.Lock()
	m.entries[model] = memoryEntry{channels: cp, expiresAt: expiresAt}
	m.mu.Unlock()
}
