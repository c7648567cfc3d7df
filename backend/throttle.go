package backend

import (
	"context"

	"github.com/hupe1980/gridcache"
	"github.com/hupe1980/gridcache/resource"
)

// ThrottledStore decorates a Store with resource limits: concurrent fetches
// are bounded and write-back bytes are rate limited. A nil controller
// enforces nothing.
type ThrottledStore struct {
	inner Store
	rc    *resource.Controller
}

// NewThrottledStore wraps inner with the given resource controller.
func NewThrottledStore(inner Store, rc *resource.Controller) *ThrottledStore {
	return &ThrottledStore{inner: inner, rc: rc}
}

// Fetch waits for a fetch slot, then reads the chunk.
func (s *ThrottledStore) Fetch(ctx context.Context, key gridcache.ChunkKey) ([]byte, error) {
	if err := s.rc.AcquireFetch(ctx); err != nil {
		return nil, err
	}
	defer s.rc.ReleaseFetch()

	return s.inner.Fetch(ctx, key)
}

// Persist waits until the write-back rate allows the payload, then writes it.
func (s *ThrottledStore) Persist(ctx context.Context, key gridcache.ChunkKey, data []byte) error {
	if err := s.rc.AcquirePersist(ctx, len(data)); err != nil {
		return err
	}
	return s.inner.Persist(ctx, key, data)
}

// Delete removes the chunk.
func (s *ThrottledStore) Delete(ctx context.Context, key gridcache.ChunkKey) error {
	return s.inner.Delete(ctx, key)
}
