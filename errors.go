package gridcache

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an operation targets a key that is not
	// resident in the cache.
	ErrNotFound = errors.New("chunk not cached")

	// ErrCacheExhausted is returned when the cache is over capacity and the
	// eviction candidate is dirty and cannot be written back. No safe forward
	// progress exists; the failure is surfaced loudly instead of dropping
	// data. The underlying PersistError can be accessed via errors.As.
	ErrCacheExhausted = errors.New("cache full: eviction candidate dirty and unwritable")

	// ErrClosed is returned for operations on a closed cache.
	ErrClosed = errors.New("cache closed")
)

// FetchError indicates that the backend failed to fetch a chunk. The queue
// entry for the key is cleared and the key is not retried automatically;
// retry policy belongs to the caller.
//
// The backend's error can be accessed via errors.Unwrap.
type FetchError struct {
	Key   ChunkKey
	cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Key, e.cause)
}

func (e *FetchError) Unwrap() error { return e.cause }

// PersistError indicates that the backend failed to persist a chunk during a
// save or a forced write-back inside eviction.
//
// The backend's error can be accessed via errors.Unwrap.
type PersistError struct {
	Key   ChunkKey
	cause error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Key, e.cause)
}

func (e *PersistError) Unwrap() error { return e.cause }
