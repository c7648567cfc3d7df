package gridcache

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordHit is called for every GetOrLoad that finds a resident chunk.
	RecordHit()

	// RecordMiss is called for every GetOrLoad that does not.
	RecordMiss()

	// RecordLoad is called after each backend fetch resolves.
	// duration is the fetch time, err is nil if successful.
	RecordLoad(duration time.Duration, err error)

	// RecordEviction is called after each eviction. writeBack reports whether
	// a dirty entry had to be persisted first.
	RecordEviction(writeBack bool)

	// RecordSave is called after each write-back attempt.
	RecordSave(duration time.Duration, err error)

	// RecordPrefetch is called after each Prefetch with the number of newly
	// enqueued keys.
	RecordPrefetch(enqueued int)

	// RecordDroppedEvent is called when a subscriber's buffer was full and an
	// event was discarded.
	RecordDroppedEvent()
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordHit()                        {}
func (NoopMetricsCollector) RecordMiss()                       {}
func (NoopMetricsCollector) RecordLoad(time.Duration, error)   {}
func (NoopMetricsCollector) RecordEviction(bool)               {}
func (NoopMetricsCollector) RecordSave(time.Duration, error)   {}
func (NoopMetricsCollector) RecordPrefetch(int)                {}
func (NoopMetricsCollector) RecordDroppedEvent()               {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	Hits           atomic.Int64
	Misses         atomic.Int64
	Loads          atomic.Int64
	LoadErrors     atomic.Int64
	LoadTotalNanos atomic.Int64
	Evictions      atomic.Int64
	WriteBacks     atomic.Int64
	Saves          atomic.Int64
	SaveErrors     atomic.Int64
	SaveTotalNanos atomic.Int64
	Prefetched     atomic.Int64
	DroppedEvents  atomic.Int64
}

// RecordHit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordHit() { b.Hits.Add(1) }

// RecordMiss implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMiss() { b.Misses.Add(1) }

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(duration time.Duration, err error) {
	b.Loads.Add(1)
	b.LoadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// RecordEviction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEviction(writeBack bool) {
	b.Evictions.Add(1)
	if writeBack {
		b.WriteBacks.Add(1)
	}
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(duration time.Duration, err error) {
	b.Saves.Add(1)
	b.SaveTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SaveErrors.Add(1)
	}
}

// RecordPrefetch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPrefetch(enqueued int) {
	b.Prefetched.Add(int64(enqueued))
}

// RecordDroppedEvent implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDroppedEvent() { b.DroppedEvents.Add(1) }
