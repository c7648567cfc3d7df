package gridcache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/gridcache"
	"github.com/hupe1980/gridcache/testutil"
)

func TestSaverPeriodicWriteBack(t *testing.T) {
	fb := testutil.NewFakeBackend[string]()
	k := key("poi-1", 0, 0)
	fb.Seed(k, "v1")

	c := newTestCache(t, fb,
		gridcache.WithSaveInterval(10*time.Millisecond),
	)

	load(t, c, k)
	require.NoError(t, c.Update(k, func(payload *string) { *payload = "v2" }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go gridcache.NewSaver(c).Run(ctx)

	require.Eventually(t, func() bool {
		saved, ok := fb.Persisted(k)
		return ok && saved == "v2"
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, c.DirtyCount())
}

func TestSaverIdleSweep(t *testing.T) {
	clock := testutil.NewClock(time.Unix(1_700_000_000, 0))
	fb := testutil.NewFakeBackend[string]()
	k := key("poi-1", 0, 0)
	fb.Seed(k, "v")

	c := newTestCache(t, fb,
		gridcache.WithSaveInterval(10*time.Millisecond),
		gridcache.WithUnloadThreshold(5*time.Minute),
		gridcache.WithClock(clock.Now),
	)

	load(t, c, k)
	clock.Advance(10 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go gridcache.NewSaver(c).Run(ctx)

	require.Eventually(t, func() bool {
		return !c.Contains(k)
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSaverStopsOnClosedCache(t *testing.T) {
	fb := testutil.NewFakeBackend[string]()
	c := newTestCache(t, fb,
		gridcache.WithSaveInterval(5*time.Millisecond),
	)

	done := make(chan struct{})
	go func() {
		gridcache.NewSaver(c).Run(context.Background())
		close(done)
	}()

	require.NoError(t, c.Close(context.Background()))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("saver did not stop after cache close")
	}
}
