package gridcache

import (
	"context"
	"time"
)

// Saver periodically writes dirty entries back and sweeps idle entries out of
// a cache. It is deliberately an external caller of SaveAllDirty/EvictIdle
// rather than hidden cache state, so the cache API itself stays synchronous
// and deterministic. Zero dirty entries on a tick is fine.
type Saver[T any] struct {
	cache    *Cache[T]
	interval time.Duration
	idleAge  time.Duration
	logger   *Logger
}

// NewSaver creates a Saver using the cache's configured save interval and
// unload threshold. An idle age of 0 disables the idle sweep.
func NewSaver[T any](cache *Cache[T]) *Saver[T] {
	return &Saver[T]{
		cache:    cache,
		interval: cache.opts.saveInterval,
		idleAge:  cache.opts.unloadThreshold,
		logger:   cache.logger,
	}
}

// Run blocks, flushing dirty entries every interval until ctx is done or the
// cache is closed. Run it in its own goroutine.
func (s *Saver[T]) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		results := s.cache.SaveAllDirty(ctx)
		for _, r := range results {
			if r.Err != nil {
				s.logger.ErrorContext(ctx, "periodic save failed",
					"key", r.Key.String(),
					"error", r.Err,
				)
			}
		}

		if s.idleAge > 0 {
			if _, err := s.cache.EvictIdle(ctx, s.idleAge); err != nil {
				if err == ErrClosed {
					return
				}
				s.logger.ErrorContext(ctx, "idle sweep failed", "error", err)
			}
		}
	}
}
