// Package gridcache is a bounded chunk cache and prefetch manager for
// spatially partitioned world data. It sits between a persistence backend and
// consumers that need low-latency access to nearby chunks: cache hits return
// immediately, misses are fetched asynchronously through a deduplicated,
// batched load queue, and a composite eviction policy (priority tier plus
// recency) keeps the table under a hard capacity bound. Dirty entries are
// written back through the backend before eviction and on shutdown.
package gridcache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hupe1980/gridcache/internal/resident"
)

// Backend fetches and persists chunk payloads by key. Implementations own
// transport, serialization and timeouts; the cache only classifies their
// errors. See the backend package for byte-oriented stores and the
// codec-typed adapter.
type Backend[T any] interface {
	Fetch(ctx context.Context, key ChunkKey) (T, error)
	Persist(ctx context.Context, key ChunkKey, value T) error
}

// Cache is a bounded chunk cache with asynchronous, batched loading and
// radius prefetch. All table and queue state lives behind a single mutex;
// only backend fetches run concurrently, and never two for the same key.
type Cache[T any] struct {
	opts    options
	backend Backend[T]
	logger  *Logger
	metrics MetricsCollector
	events  *eventBus

	// pacer spaces consecutive drain batches by the loading delay.
	pacer *rate.Limiter

	mu         sync.Mutex
	table      map[ChunkKey]*cacheEntry[T]
	pending    []ChunkKey // FIFO order
	pendingSet map[ChunkKey]struct{}
	inflight   map[ChunkKey]struct{}
	res        *resident.Set
	refX, refY int
	seq        uint64
	// gen invalidates in-flight fetch results when the table is cleared.
	gen      uint64
	draining bool
	closed   bool

	drainCtx    context.Context
	drainCancel context.CancelFunc
	wg          sync.WaitGroup
}

// New creates a Cache backed by the given backend.
func New[T any](backend Backend[T], optFns ...Option) (*Cache[T], error) {
	if backend == nil {
		return nil, errors.New("gridcache: backend must not be nil")
	}

	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.logger == nil {
		opts.logger = NewLogger(nil)
	}

	limit := rate.Inf
	if opts.loadingDelay > 0 {
		limit = rate.Every(opts.loadingDelay)
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Cache[T]{
		opts:        opts,
		backend:     backend,
		logger:      opts.logger,
		metrics:     opts.metrics,
		pacer:       rate.NewLimiter(limit, 1),
		table:       make(map[ChunkKey]*cacheEntry[T]),
		pendingSet:  make(map[ChunkKey]struct{}),
		inflight:    make(map[ChunkKey]struct{}),
		res:         resident.NewSet(),
		drainCtx:    ctx,
		drainCancel: cancel,
	}
	c.events = newEventBus(opts.metrics.RecordDroppedEvent)

	return c, nil
}

// Subscribe registers a lifecycle event channel. Events are notifications
// only; they deliberately do not carry chunk payloads, so a subscriber that
// wants the content goes through GetOrLoad like everyone else. Delivery never
// blocks cache operations: if the buffer is full the event is dropped and
// counted. The returned func unsubscribes and closes the channel.
func (c *Cache[T]) Subscribe(buffer int) (<-chan Event, func()) {
	return c.events.subscribe(buffer)
}

// GetOrLoad returns the chunk for key if it is resident, touching its
// recency. Otherwise the key is enqueued for an asynchronous fetch (at most
// once; a key already queued or in flight is not enqueued again) and
// StatusPending is returned. The loaded chunk is announced via EventLoaded.
func (c *Cache[T]) GetOrLoad(ctx context.Context, key ChunkKey) (T, Status, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, StatusPending, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return zero, StatusPending, ErrClosed
	}

	if ent, ok := c.table[key]; ok {
		ent.lastAccessed = c.opts.clock()
		v := ent.payload
		c.mu.Unlock()
		c.metrics.RecordHit()
		return v, StatusHit, nil
	}

	_, queued := c.pendingSet[key]
	if _, fetching := c.inflight[key]; !queued && !fetching {
		c.enqueueLocked(key)
		c.ensureDrainLocked()
	}
	c.mu.Unlock()

	c.metrics.RecordMiss()
	return zero, StatusPending, nil
}

// Contains reports whether key is resident. It does not touch recency.
func (c *Cache[T]) Contains(key ChunkKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.table[key]
	return ok
}

// Update applies fn to the resident payload under the cache lock, marks the
// entry dirty and touches its recency. This is the only mutation path; fn
// must not call back into the cache.
func (c *Cache[T]) Update(key ChunkKey, fn func(payload *T)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	ent, ok := c.table[key]
	if !ok {
		return ErrNotFound
	}

	fn(&ent.payload)
	ent.dirty = true
	ent.lastAccessed = c.opts.clock()
	return nil
}

// MarkDirty flags a resident entry as diverged from its persisted copy.
func (c *Cache[T]) MarkDirty(key ChunkKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	ent, ok := c.table[key]
	if !ok {
		return ErrNotFound
	}
	ent.dirty = true
	return nil
}

// Save persists a resident entry through the backend and clears its dirty
// flag. Returns ErrNotFound if the key is not cached.
func (c *Cache[T]) Save(ctx context.Context, key ChunkKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	ent, ok := c.table[key]
	if !ok {
		return ErrNotFound
	}

	err := c.persistLocked(ctx, key, ent)
	c.logger.LogSave(ctx, key, err)
	return err
}

// SaveAllDirty persists every dirty entry and reports the outcome per key.
// Partial failure is expected; failed entries stay dirty.
func (c *Cache[T]) SaveAllDirty(ctx context.Context) []SaveResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	return c.saveAllDirtyLocked(ctx)
}

// Prefetch enumerates the Chebyshev square of the given radius around
// center's chunk coordinate and enqueues every key that is neither resident
// nor already queued or in flight. Any previously queued-but-undispatched
// keys for the same owner are dropped first: the newest prefetch intent wins.
// Other owners' pending loads are untouched. A negative radius means the
// configured preload radius. Returns the number of newly enqueued keys.
func (c *Cache[T]) Prefetch(ctx context.Context, ownerID string, center Point, radius int) int {
	if radius < 0 {
		radius = c.opts.preloadRadius
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0
	}

	dropped := 0
	if len(c.pending) > 0 {
		kept := c.pending[:0]
		for _, k := range c.pending {
			if k.OwnerID == ownerID {
				delete(c.pendingSet, k)
				dropped++
				continue
			}
			kept = append(kept, k)
		}
		c.pending = kept
	}

	cx, cy := chunkOf(center, c.opts.chunkSize)
	enqueued := 0
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			x, y := cx+dx, cy+dy
			if c.res.Contains(ownerID, x, y) {
				continue
			}
			key := ChunkKey{OwnerID: ownerID, X: x, Y: y}
			if _, ok := c.inflight[key]; ok {
				continue
			}
			if _, ok := c.pendingSet[key]; ok {
				continue
			}
			c.enqueueLocked(key)
			enqueued++
		}
	}
	if enqueued > 0 {
		c.ensureDrainLocked()
	}
	c.mu.Unlock()

	c.metrics.RecordPrefetch(enqueued)
	c.logger.LogPrefetch(ctx, ownerID, radius, enqueued, dropped)
	return enqueued
}

// SetReference moves the reference point (in world coordinates) and
// recomputes every resident entry's priority tier. The cache never does this
// on its own; callers invoke it when the reference point moves materially.
func (c *Cache[T]) SetReference(p Point) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.refX, c.refY = chunkOf(p, c.opts.chunkSize)
	for key, ent := range c.table {
		ent.priority = c.priorityLocked(key)
	}
}

// ResidentInRadius returns how many chunks within the Chebyshev radius of
// center's chunk coordinate are currently resident for the owner.
func (c *Cache[T]) ResidentInRadius(ownerID string, center Point, radius int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cx, cy := chunkOf(center, c.opts.chunkSize)
	return c.res.CountInRadius(ownerID, cx, cy, radius)
}

// EvictIdle removes entries whose last access is older than the given age.
// Dirty entries are written back first; an entry whose write-back fails stays
// resident and its error is included in the joined error. Returns the number
// of evicted entries.
func (c *Cache[T]) EvictIdle(ctx context.Context, olderThan time.Duration) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrClosed
	}

	cutoff := c.opts.clock().Add(-olderThan)
	var idle []ChunkKey
	for key, ent := range c.table {
		if ent.lastAccessed.Before(cutoff) {
			idle = append(idle, key)
		}
	}
	sort.Slice(idle, func(i, j int) bool {
		return c.table[idle[i]].seq < c.table[idle[j]].seq
	})

	evicted := 0
	var errs []error
	for _, key := range idle {
		ent := c.table[key]
		writeBack := ent.dirty
		if writeBack {
			if err := c.persistLocked(ctx, key, ent); err != nil {
				errs = append(errs, err)
				continue
			}
		}
		c.removeLocked(ctx, key, writeBack)
		evicted++
	}
	return evicted, errors.Join(errs...)
}

// Clear removes every entry and drops all queued-but-undispatched loads.
// Without force, dirty entries are written back first and the first failure
// aborts the clear with nothing removed. With force, dirty state is discarded
// and each discard is logged. Returns the number of removed entries.
func (c *Cache[T]) Clear(ctx context.Context, force bool) (int, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, ErrClosed
	}

	if !force {
		for key, ent := range c.table {
			if !ent.dirty {
				continue
			}
			if err := c.persistLocked(ctx, key, ent); err != nil {
				c.mu.Unlock()
				return 0, err
			}
		}
	} else {
		for key, ent := range c.table {
			if ent.dirty {
				c.logger.WarnContext(ctx, "force-discarding dirty chunk",
					"key", key.String(),
				)
			}
		}
	}

	count := len(c.table)
	c.table = make(map[ChunkKey]*cacheEntry[T])
	c.res.Reset()
	c.pending = nil
	clear(c.pendingSet)
	c.gen++
	c.mu.Unlock()

	c.events.publish(Event{Type: EventCleared, Count: count})
	c.logger.LogClear(ctx, count, force)
	return count, nil
}

// Len returns the number of resident entries.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.table)
}

// DirtyCount returns the number of resident entries with unpersisted changes.
func (c *Cache[T]) DirtyCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, ent := range c.table {
		if ent.dirty {
			n++
		}
	}
	return n
}

// PendingCount returns the number of keys queued or in flight.
func (c *Cache[T]) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending) + len(c.inflight)
}

// WaitIdle blocks until no loads are queued or in flight, or ctx is done.
// Intended for tests and orderly handoffs; normal consumers react to events.
func (c *Cache[T]) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()

	for {
		c.mu.Lock()
		idle := len(c.pending) == 0 && len(c.inflight) == 0 && !c.draining
		c.mu.Unlock()
		if idle {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close stops the drain loop, flushes every dirty entry through the backend
// and closes all event subscriptions. Per-key flush failures are joined into
// the returned error. Close is idempotent.
func (c *Cache[T]) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.pending = nil
	clear(c.pendingSet)
	c.mu.Unlock()

	c.drainCancel()
	c.wg.Wait()

	c.mu.Lock()
	results := c.saveAllDirtyLocked(ctx)
	c.mu.Unlock()

	c.events.close()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}

// --- queue draining ---

func (c *Cache[T]) enqueueLocked(key ChunkKey) {
	c.pending = append(c.pending, key)
	c.pendingSet[key] = struct{}{}
}

func (c *Cache[T]) ensureDrainLocked() {
	if c.draining || c.closed {
		return
	}
	c.draining = true
	c.wg.Add(1)
	go c.drainLoop()
}

// takeBatch pops up to one batch of keys from the pending queue and marks
// them in flight. An empty return means the loop should stop; the draining
// flag is flipped under the same lock so a concurrent enqueue restarts it.
func (c *Cache[T]) takeBatch() ([]ChunkKey, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || len(c.pending) == 0 {
		c.draining = false
		return nil, 0
	}

	n := min(c.opts.loadingBatchSize, len(c.pending))
	batch := make([]ChunkKey, n)
	copy(batch, c.pending[:n])
	c.pending = slices.Delete(c.pending, 0, n)

	for _, k := range batch {
		delete(c.pendingSet, k)
		c.inflight[k] = struct{}{}
	}
	return batch, c.gen
}

func (c *Cache[T]) drainLoop() {
	defer c.wg.Done()
	ctx := c.drainCtx

	for {
		if err := c.pacer.Wait(ctx); err != nil {
			c.mu.Lock()
			c.draining = false
			c.mu.Unlock()
			return
		}

		batch, gen := c.takeBatch()
		if len(batch) == 0 {
			return
		}

		// Fetches within a batch run concurrently, but a key is removed from
		// the queue the moment it is dispatched, so no key ever has two
		// outstanding fetches.
		var g errgroup.Group
		g.SetLimit(len(batch))
		for _, key := range batch {
			g.Go(func() error {
				if err := c.opts.rc.AcquireFetch(ctx); err != nil {
					c.completeLoad(ctx, key, gen, *new(T), err)
					return nil
				}
				start := time.Now()
				payload, err := c.backend.Fetch(ctx, key)
				c.opts.rc.ReleaseFetch()
				c.metrics.RecordLoad(time.Since(start), err)
				c.completeLoad(ctx, key, gen, payload, err)
				return nil
			})
		}
		_ = g.Wait()

		c.mu.Lock()
		remaining := len(c.pending)
		c.mu.Unlock()
		c.events.publish(Event{Type: EventQueueDrained, Count: len(batch), Remaining: remaining})
	}
}

// completeLoad resolves one dispatched fetch. On failure the key simply
// leaves the in-flight set: no retry, no caching of the failure. A later
// GetOrLoad for the key enqueues it again.
func (c *Cache[T]) completeLoad(ctx context.Context, key ChunkKey, gen uint64, payload T, err error) {
	c.mu.Lock()
	delete(c.inflight, key)

	if err != nil {
		c.mu.Unlock()
		ferr := &FetchError{Key: key, cause: err}
		c.logger.LogLoad(ctx, key, err)
		c.events.publish(Event{Type: EventError, Key: key, Err: ferr})
		return
	}

	if c.closed || gen != c.gen {
		// The table was cleared (or the cache closed) after this fetch was
		// dispatched; the result has no home anymore.
		c.mu.Unlock()
		return
	}
	if _, ok := c.table[key]; ok {
		c.mu.Unlock()
		return
	}

	c.seq++
	c.table[key] = &cacheEntry[T]{
		payload:      payload,
		lastAccessed: c.opts.clock(),
		priority:     c.priorityLocked(key),
		seq:          c.seq,
	}
	c.res.Add(key.OwnerID, key.X, key.Y)

	evictErr := c.evictUntilUnderCapacityLocked(ctx)
	c.mu.Unlock()

	c.logger.LogLoad(ctx, key, nil)
	c.events.publish(Event{Type: EventLoaded, Key: key})

	if evictErr != nil {
		c.logger.ErrorContext(ctx, "eviction failed after load",
			"key", key.String(),
			"error", evictErr,
		)
		c.events.publish(Event{Type: EventError, Key: key, Err: evictErr})
	}
}

// --- eviction ---

// evictUntilUnderCapacityLocked removes entries until the table fits the
// capacity bound. The victim is the entry with the highest priority tier,
// ties broken by oldest access, then clean before dirty, then insertion
// order. A dirty victim is written back first; if that write-back fails the
// whole eviction aborts with ErrCacheExhausted wrapping the PersistError
// rather than dropping data.
func (c *Cache[T]) evictUntilUnderCapacityLocked(ctx context.Context) error {
	for len(c.table) > c.opts.maxCachedChunks {
		key, ent, ok := c.selectVictimLocked()
		if !ok {
			return nil
		}

		writeBack := ent.dirty
		if writeBack {
			if err := c.persistLocked(ctx, key, ent); err != nil {
				return fmt.Errorf("%w: %w", ErrCacheExhausted, err)
			}
		}
		c.removeLocked(ctx, key, writeBack)
	}
	return nil
}

func (c *Cache[T]) selectVictimLocked() (ChunkKey, *cacheEntry[T], bool) {
	var (
		bestKey ChunkKey
		best    *cacheEntry[T]
	)
	for key, ent := range c.table {
		if best == nil || victimBefore(ent, best) {
			bestKey, best = key, ent
		}
	}
	return bestKey, best, best != nil
}

// victimBefore reports whether a is a better eviction victim than b.
func victimBefore[T any](a, b *cacheEntry[T]) bool {
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	if !a.lastAccessed.Equal(b.lastAccessed) {
		return a.lastAccessed.Before(b.lastAccessed)
	}
	if a.dirty != b.dirty {
		return !a.dirty
	}
	return a.seq < b.seq
}

// removeLocked deletes a resident entry. Dirty entries must have been written
// back (or explicitly force-discarded) before this is called.
func (c *Cache[T]) removeLocked(ctx context.Context, key ChunkKey, writeBack bool) {
	delete(c.table, key)
	c.res.Remove(key.OwnerID, key.X, key.Y)
	c.metrics.RecordEviction(writeBack)
	c.logger.LogEvict(ctx, key, writeBack)
	c.events.publish(Event{Type: EventEvicted, Key: key})
}

// --- persistence ---

func (c *Cache[T]) persistLocked(ctx context.Context, key ChunkKey, ent *cacheEntry[T]) error {
	start := time.Now()
	err := c.backend.Persist(ctx, key, ent.payload)
	c.metrics.RecordSave(time.Since(start), err)
	if err != nil {
		return &PersistError{Key: key, cause: err}
	}

	ent.dirty = false
	c.events.publish(Event{Type: EventSaved, Key: key})
	return nil
}

func (c *Cache[T]) saveAllDirtyLocked(ctx context.Context) []SaveResult {
	var keys []ChunkKey
	for key, ent := range c.table {
		if ent.dirty {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})

	results := make([]SaveResult, 0, len(keys))
	failed := 0
	for _, key := range keys {
		err := c.persistLocked(ctx, key, c.table[key])
		if err != nil {
			failed++
		}
		results = append(results, SaveResult{Key: key, Err: err})
	}

	c.logger.LogSaveAll(ctx, len(results), failed)
	return results
}

// --- priority ---

// priorityLocked derives the priority tier for a key from its Chebyshev
// distance to the reference chunk: tier 0 at the reference, the top tier at
// or beyond the preload radius.
func (c *Cache[T]) priorityLocked(key ChunkKey) int {
	levels := c.opts.priorityLevels
	if levels <= 1 {
		return 0
	}

	d := chebyshev(key.X-c.refX, key.Y-c.refY)
	r := c.opts.preloadRadius
	if r <= 0 {
		if d == 0 {
			return 0
		}
		return levels - 1
	}

	norm := float64(d) / float64(r)
	if norm > 1 {
		norm = 1
	}
	return int(norm * float64(levels-1))
}
