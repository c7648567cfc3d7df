package backend

import (
	"context"
	"sync"

	"github.com/hupe1980/gridcache"
)

// MemoryStore is an in-memory Store implementation for testing and
// single-process use. Thread-safe for concurrent reads and writes.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[string][]byte
}

// NewMemoryStore creates a new in-memory chunk store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chunks: make(map[string][]byte),
	}
}

// Fetch returns the persisted bytes for key.
func (m *MemoryStore) Fetch(_ context.Context, key gridcache.ChunkKey) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.chunks[key.String()]
	if !ok {
		return nil, ErrChunkNotFound
	}

	// Return a copy to prevent external mutation
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}

// Persist writes the bytes for key.
func (m *MemoryStore) Persist(_ context.Context, key gridcache.ChunkKey, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]byte, len(data))
	copy(copied, data)
	m.chunks[key.String()] = copied
	return nil
}

// Delete removes the chunk.
func (m *MemoryStore) Delete(_ context.Context, key gridcache.ChunkKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.chunks, key.String())
	return nil
}

// Len returns the number of stored chunks.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}
