package gridcache

import (
	"time"

	"github.com/hupe1980/gridcache/resource"
)

type options struct {
	chunkSize        int
	maxCachedChunks  int
	preloadRadius    int
	priorityLevels   int
	loadingBatchSize int
	loadingDelay     time.Duration
	unloadThreshold  time.Duration
	saveInterval     time.Duration

	logger  *Logger
	metrics MetricsCollector
	rc      *resource.Controller
	clock   func() time.Time
}

func defaultOptions() options {
	return options{
		chunkSize:        16,
		maxCachedChunks:  64,
		preloadRadius:    2,
		priorityLevels:   3,
		loadingBatchSize: 4,
		loadingDelay:     time.Second,
		unloadThreshold:  5 * time.Minute,
		saveInterval:     time.Minute,
		metrics:          NoopMetricsCollector{},
		clock:            time.Now,
	}
}

// Option configures a Cache.
type Option func(*options)

// WithChunkSize sets the world-coordinate extent of one chunk (default 16).
// Prefetch centers are divided by this to obtain chunk coordinates.
func WithChunkSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.chunkSize = size
		}
	}
}

// WithMaxCachedChunks bounds the entry table (default 64). The bound holds
// after every completed load; inserting past it triggers eviction.
func WithMaxCachedChunks(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxCachedChunks = n
		}
	}
}

// WithPreloadRadius sets the Chebyshev radius used by Prefetch and by priority
// normalization (default 2).
func WithPreloadRadius(r int) Option {
	return func(o *options) {
		if r >= 0 {
			o.preloadRadius = r
		}
	}
}

// WithPriorityLevels sets the number of priority tiers (default 3). Tier 0 is
// kept longest; the highest tier is evicted first.
func WithPriorityLevels(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.priorityLevels = n
		}
	}
}

// WithLoadingBatchSize sets how many queued keys one drain step dispatches
// (default 4). Fetches within a batch run concurrently.
func WithLoadingBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.loadingBatchSize = n
		}
	}
}

// WithLoadingDelay sets the pause between consecutive drain batches
// (default 1s).
func WithLoadingDelay(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.loadingDelay = d
		}
	}
}

// WithUnloadThreshold sets the idle age past which EvictIdle removes entries
// (default 5m). The cache never sweeps on its own; see Saver.
func WithUnloadThreshold(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.unloadThreshold = d
		}
	}
}

// WithSaveInterval sets the periodic write-back interval used by Saver
// (default 1m).
func WithSaveInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.saveInterval = d
		}
	}
}

// WithLogger sets the logger. If unset, a text logger at info level is used.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetricsCollector sets the metrics collector. Pass nil to disable.
func WithMetricsCollector(m MetricsCollector) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		o.metrics = m
	}
}

// WithResourceController attaches a resource controller bounding concurrent
// backend fetches. Nil disables the bound (batch size still applies).
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithClock overrides the time source. Tests use this to steer recency and
// idle-age decisions deterministically.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}
