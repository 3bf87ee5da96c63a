package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// MemoryPayloadArchive keeps payloads in process memory. It backs local
// development and tests where no bucket is configured.
type MemoryPayloadArchive struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryPayloadArchive creates an empty in-memory archive
func NewMemoryPayloadArchive() *MemoryPayloadArchive {
	return &MemoryPayloadArchive{objects: make(map[string][]byte)}
}

// Put stores a copy of the payload
func (m *MemoryPayloadArchive) Put(_ context.Context, key string, body []byte, _ string) error {
	if key == "" {
		return errors.New("archive key is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), body...)
	return nil
}

// Exists reports whether a payload is stored
func (m *MemoryPayloadArchive) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

// Get returns a stored payload
func (m *MemoryPayloadArchive) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	body, ok := m.objects[key]
	return body, ok
}

// Keys lists stored keys in sorted order
func (m *MemoryPayloadArchive) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
