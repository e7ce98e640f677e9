package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

type (
	// MemoryStore is a process-local Store for single-instance deployments
	// and tests. Expired entries are dropped lazily on read.
	MemoryStore struct {
		mtx     sync.RWMutex
		entries map[string]memoryEntry
		now     func() time.Time
	}

	memoryEntry struct {
		value     []byte
		expiresAt time.Time
	}
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: map[string]memoryEntry{},
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mtx.RLock()
	entry, ok := m.entries[key]
	m.mtx.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		m.mtx.Lock()
		delete(m.entries, key)
		m.mtx.Unlock()
		return nil, false, nil
	}
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.mtx.Lock()
	m.entries[key] = entry
	m.mtx.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mtx.Lock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	m.mtx.Unlock()
	return nil
}

func (m *MemoryStore) DeletePrefix(_ context.Context, prefix string) error {
	m.mtx.Lock()
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	m.mtx.Unlock()
	return nil
}

func (m *MemoryStore) Close() error {
	m.mtx.Lock()
	m.entries = map[string]memoryEntry{}
	m.mtx.Unlock()
	return nil
}

// Len reports the live entry count, expired entries included until touched.
func (m *MemoryStore) Len() int {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return len(m.entries)
}
