package storage

import (
	"context"
	"strings"
	"sync"

	"github.com/justapithecus/strata/strata"
)

// Memory implements strata.ObjectStore in memory. It is intended for tests
// and examples; Put exists only to seed fixtures and is not part of the
// ObjectStore interface.
//
// Consistency: immediate read-after-write. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

// Put stores an object, overwriting any previous content.
func (m *Memory) Put(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = append([]byte(nil), data...)
}

// Delete removes an object if present.
func (m *Memory) Delete(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, path)
}

// Get retrieves the entire object at the given path.
// Returns strata.ErrNotFound if the path does not exist.
func (m *Memory) Get(_ context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[path]
	if !ok {
		return nil, strata.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// ReadRange reads the byte range [offset, offset+length) of an object.
// Ranges extending past the end of the object are truncated.
func (m *Memory) ReadRange(_ context.Context, path string, offset, length int64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[path]
	if !ok {
		return nil, strata.ErrNotFound
	}
	if offset >= int64(len(data)) {
		return nil, nil
	}
	end := offset + length
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return append([]byte(nil), data[offset:end]...), nil
}

// Stat returns the size of an object in bytes.
func (m *Memory) Stat(_ context.Context, path string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[path]
	if !ok {
		return 0, strata.ErrNotFound
	}
	return int64(len(data)), nil
}

// List returns object paths under the given prefix, in unspecified order.
func (m *Memory) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var paths []string
	for path := range m.objects {
		if strings.HasPrefix(path, prefix) {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// Ensure Memory implements strata.ObjectStore.
var _ strata.ObjectStore = (*Memory)(nil)
