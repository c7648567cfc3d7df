// Package backend provides byte-oriented chunk stores plus decorators for
// compression, throttling and codec-typed payloads. Every store addresses
// chunks by gridcache.ChunkKey; transport, serialization format and auth are
// entirely the store's concern.
package backend

import (
	"context"
	"errors"

	"github.com/hupe1980/gridcache"
)

// ErrChunkNotFound is returned when a chunk does not exist in the store.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrChunkNotFound)`.
var ErrChunkNotFound = errors.New("chunk not found")

// Store is a byte-oriented chunk store. A Store satisfies
// gridcache.Backend[[]byte] directly; NewTyped adapts one to a typed payload.
type Store interface {
	// Fetch returns the persisted bytes for key, or ErrChunkNotFound.
	Fetch(ctx context.Context, key gridcache.ChunkKey) ([]byte, error)
	// Persist writes the bytes for key atomically.
	Persist(ctx context.Context, key gridcache.ChunkKey, data []byte) error
	// Delete removes the chunk. Deleting a missing chunk is not an error.
	Delete(ctx context.Context, key gridcache.ChunkKey) error
}
