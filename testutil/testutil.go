// Package testutil provides a scriptable fake backend and a manual clock for
// cache tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/gridcache"
	"github.com/hupe1980/gridcache/backend"
)

// Clock is a manually advanced time source. It is thread-safe.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a Clock starting at the given instant.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// FakeBackend is an in-memory gridcache.Backend with scriptable failures and
// call tracking. It is thread-safe.
type FakeBackend[T any] struct {
	mu         sync.Mutex
	chunks     map[gridcache.ChunkKey]T
	fetchErr   map[gridcache.ChunkKey]error
	persistErr map[gridcache.ChunkKey]error

	fetchCalls   map[gridcache.ChunkKey]int
	persistCalls map[gridcache.ChunkKey]int

	// concurrency observation
	inflight        map[gridcache.ChunkKey]int
	maxSameKey      int
	maxTotal        int
	currentTotal    int
	fetchDelay      time.Duration
	fetchGate       chan struct{}
	persisted       map[gridcache.ChunkKey]T
	defaultValue    func(gridcache.ChunkKey) T
	hasDefaultValue bool
}

// NewFakeBackend creates an empty fake backend. Fetching an unseeded key
// returns backend.ErrChunkNotFound unless a default generator is set.
func NewFakeBackend[T any]() *FakeBackend[T] {
	return &FakeBackend[T]{
		chunks:       make(map[gridcache.ChunkKey]T),
		fetchErr:     make(map[gridcache.ChunkKey]error),
		persistErr:   make(map[gridcache.ChunkKey]error),
		fetchCalls:   make(map[gridcache.ChunkKey]int),
		persistCalls: make(map[gridcache.ChunkKey]int),
		inflight:     make(map[gridcache.ChunkKey]int),
		persisted:    make(map[gridcache.ChunkKey]T),
	}
}

// Seed stores a chunk the backend will serve.
func (f *FakeBackend[T]) Seed(key gridcache.ChunkKey, value T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks[key] = value
}

// SetDefault makes every unseeded key resolve through gen instead of
// returning not-found.
func (f *FakeBackend[T]) SetDefault(gen func(gridcache.ChunkKey) T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaultValue = gen
	f.hasDefaultValue = gen != nil
}

// FailFetch scripts a fetch error for key. Pass nil to clear.
func (f *FakeBackend[T]) FailFetch(key gridcache.ChunkKey, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fetchErr, key)
		return
	}
	f.fetchErr[key] = err
}

// FailPersist scripts a persist error for key. Pass nil to clear.
func (f *FakeBackend[T]) FailPersist(key gridcache.ChunkKey, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.persistErr, key)
		return
	}
	f.persistErr[key] = err
}

// SetFetchDelay makes every fetch sleep for d, exposing concurrency.
func (f *FakeBackend[T]) SetFetchDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchDelay = d
}

// BlockFetches makes fetches block until ReleaseFetches is called.
func (f *FakeBackend[T]) BlockFetches() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchGate = make(chan struct{})
}

// ReleaseFetches unblocks fetches blocked by BlockFetches.
func (f *FakeBackend[T]) ReleaseFetches() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchGate != nil {
		close(f.fetchGate)
		f.fetchGate = nil
	}
}

// Fetch implements gridcache.Backend.
func (f *FakeBackend[T]) Fetch(ctx context.Context, key gridcache.ChunkKey) (T, error) {
	var zero T

	f.mu.Lock()
	f.fetchCalls[key]++
	f.inflight[key]++
	if f.inflight[key] > f.maxSameKey {
		f.maxSameKey = f.inflight[key]
	}
	f.currentTotal++
	if f.currentTotal > f.maxTotal {
		f.maxTotal = f.currentTotal
	}
	delay := f.fetchDelay
	gate := f.fetchGate
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inflight[key]--
		f.currentTotal--
		f.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.fetchErr[key]; ok {
		return zero, err
	}
	if v, ok := f.chunks[key]; ok {
		return v, nil
	}
	if f.hasDefaultValue {
		v := f.defaultValue(key)
		f.chunks[key] = v
		return v, nil
	}
	return zero, backend.ErrChunkNotFound
}

// Persist implements gridcache.Backend.
func (f *FakeBackend[T]) Persist(_ context.Context, key gridcache.ChunkKey, value T) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.persistCalls[key]++
	if err, ok := f.persistErr[key]; ok {
		return err
	}
	f.chunks[key] = value
	f.persisted[key] = value
	return nil
}

// FetchCalls returns how many fetches were issued for key.
func (f *FakeBackend[T]) FetchCalls(key gridcache.ChunkKey) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls[key]
}

// PersistCalls returns how many persists were issued for key.
func (f *FakeBackend[T]) PersistCalls(key gridcache.ChunkKey) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.persistCalls[key]
}

// Persisted returns the last persisted value for key.
func (f *FakeBackend[T]) Persisted(key gridcache.ChunkKey) (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.persisted[key]
	return v, ok
}

// MaxConcurrentSameKey returns the maximum number of simultaneous fetches
// observed for any single key.
func (f *FakeBackend[T]) MaxConcurrentSameKey() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxSameKey
}

// MaxConcurrentTotal returns the maximum number of simultaneous fetches
// observed across all keys.
func (f *FakeBackend[T]) MaxConcurrentTotal() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxTotal
}
