package backend

import (
	"context"
	"fmt"

	"github.com/hupe1980/gridcache"
	"github.com/hupe1980/gridcache/codec"
)

// Typed adapts a byte-oriented Store to a typed chunk payload using a codec.
// It satisfies gridcache.Backend[T].
type Typed[T any] struct {
	store Store
	codec codec.Codec
}

// NewTyped pairs a store with a codec. If c is nil, codec.Default is used.
func NewTyped[T any](store Store, c codec.Codec) *Typed[T] {
	if c == nil {
		c = codec.Default
	}
	return &Typed[T]{store: store, codec: c}
}

// Fetch reads and decodes the chunk for key.
func (t *Typed[T]) Fetch(ctx context.Context, key gridcache.ChunkKey) (T, error) {
	var v T

	data, err := t.store.Fetch(ctx, key)
	if err != nil {
		return v, err
	}
	if err := t.codec.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode chunk %s (%s): %w", key, t.codec.Name(), err)
	}
	return v, nil
}

// Persist encodes and writes the chunk for key.
func (t *Typed[T]) Persist(ctx context.Context, key gridcache.ChunkKey, value T) error {
	data, err := t.codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode chunk %s (%s): %w", key, t.codec.Name(), err)
	}
	return t.store.Persist(ctx, key, data)
}
