// Package resource bounds the IO footprint of a chunk cache: how many backend
// fetches run at once and how many payload bytes per second may be written
// back. A nil *Controller is valid and enforces nothing.
package resource

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxConcurrentFetches is the maximum number of backend fetches in flight
	// at once. If 0, defaults to 4.
	MaxConcurrentFetches int64

	// PersistLimitBytesPerSec is the maximum write-back throughput.
	// If 0, unlimited.
	PersistLimitBytesPerSec int64
}

// Controller manages fetch concurrency and write-back throughput.
type Controller struct {
	cfg Config

	fetchSem       *semaphore.Weighted
	persistLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentFetches <= 0 {
		cfg.MaxConcurrentFetches = 4
	}

	c := &Controller{
		cfg:      cfg,
		fetchSem: semaphore.NewWeighted(cfg.MaxConcurrentFetches),
	}

	if cfg.PersistLimitBytesPerSec > 0 {
		c.persistLimiter = rate.NewLimiter(rate.Limit(cfg.PersistLimitBytesPerSec), int(cfg.PersistLimitBytesPerSec))
	}

	return c
}

// AcquireFetch reserves a fetch slot, blocking until one is free or the
// context is done.
func (c *Controller) AcquireFetch(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.fetchSem.Acquire(ctx, 1)
}

// TryAcquireFetch reserves a fetch slot without blocking.
func (c *Controller) TryAcquireFetch() bool {
	if c == nil {
		return true
	}
	return c.fetchSem.TryAcquire(1)
}

// ReleaseFetch releases a fetch slot.
func (c *Controller) ReleaseFetch() {
	if c == nil {
		return
	}
	c.fetchSem.Release(1)
}

// AcquirePersist waits until the write-back limit allows the specified number
// of bytes.
func (c *Controller) AcquirePersist(ctx context.Context, bytes int) error {
	if c == nil || c.persistLimiter == nil {
		return nil
	}
	return c.persistLimiter.WaitN(ctx, bytes)
}

// TryAcquirePersist attempts to acquire write-back tokens without blocking.
func (c *Controller) TryAcquirePersist(bytes int) bool {
	if c == nil || c.persistLimiter == nil {
		return true
	}
	return c.persistLimiter.AllowN(time.Now(), bytes)
}
