package gridcache

import "time"

// Status is the outcome of a GetOrLoad call.
type Status int

const (
	// StatusHit means the chunk was resident and is returned directly.
	StatusHit Status = iota
	// StatusPending means the chunk is not resident and a fetch is queued or
	// already in flight. The caller must not re-enqueue; the loaded chunk is
	// announced via EventLoaded.
	StatusPending
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusHit:
		return "hit"
	case StatusPending:
		return "pending"
	default:
		return "unknown"
	}
}

// cacheEntry is one resident chunk plus its lifecycle metadata. Entries are
// exclusively owned by the cache: only cache operations read or write
// lastAccessed, dirty and priority.
type cacheEntry[T any] struct {
	payload      T
	lastAccessed time.Time
	dirty        bool
	priority     int
	// seq is a monotonically increasing insertion sequence used as the final
	// eviction tie-break so candidate selection is deterministic.
	seq uint64
}

// SaveResult reports the outcome of persisting a single dirty chunk.
// SaveAllDirty returns one result per dirty entry; partial failure is expected
// and is never collapsed into a single boolean.
type SaveResult struct {
	Key ChunkKey
	Err error
}
