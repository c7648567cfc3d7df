package backend_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/gridcache"
	"github.com/hupe1980/gridcache/backend"
)

func TestCompressedStore(t *testing.T) {
	ctx := context.Background()
	key := gridcache.ChunkKey{OwnerID: "poi-1", X: 0, Y: 0}

	// Highly compressible payload.
	payload := bytes.Repeat([]byte("tile:grass;"), 500)

	algos := map[string]backend.Compression{
		"none": backend.CompressionNone,
		"lz4":  backend.CompressionLZ4,
		"zstd": backend.CompressionZSTD,
	}

	for name, algo := range algos {
		t.Run(name+" round trip", func(t *testing.T) {
			inner := backend.NewMemoryStore()
			store := backend.NewCompressedStore(inner, algo)

			require.NoError(t, store.Persist(ctx, key, payload))
			data, err := store.Fetch(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, payload, data)

			if algo != backend.CompressionNone {
				stored, err := inner.Fetch(ctx, key)
				require.NoError(t, err)
				assert.Less(t, len(stored), len(payload))
			}
		})
	}

	t.Run("incompressible data is stored raw", func(t *testing.T) {
		noise := make([]byte, 1024)
		_, err := rand.Read(noise)
		require.NoError(t, err)

		inner := backend.NewMemoryStore()
		store := backend.NewCompressedStore(inner, backend.CompressionZSTD)

		require.NoError(t, store.Persist(ctx, key, noise))
		data, err := store.Fetch(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, noise, data)
	})

	t.Run("format is self-describing across algorithms", func(t *testing.T) {
		inner := backend.NewMemoryStore()

		writer := backend.NewCompressedStore(inner, backend.CompressionLZ4)
		require.NoError(t, writer.Persist(ctx, key, payload))

		// A reader configured for a different algorithm still decodes.
		reader := backend.NewCompressedStore(inner, backend.CompressionZSTD)
		data, err := reader.Fetch(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, payload, data)
	})

	t.Run("corrupt header", func(t *testing.T) {
		inner := backend.NewMemoryStore()
		require.NoError(t, inner.Persist(ctx, key, []byte{0x01}))

		store := backend.NewCompressedStore(inner, backend.CompressionLZ4)
		_, err := store.Fetch(ctx, key)
		assert.Error(t, err)
	})

	t.Run("empty payload", func(t *testing.T) {
		inner := backend.NewMemoryStore()
		store := backend.NewCompressedStore(inner, backend.CompressionZSTD)

		require.NoError(t, store.Persist(ctx, key, []byte{}))
		data, err := store.Fetch(ctx, key)
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("fetch missing passes through", func(t *testing.T) {
		store := backend.NewCompressedStore(backend.NewMemoryStore(), backend.CompressionLZ4)
		_, err := store.Fetch(ctx, key)
		assert.ErrorIs(t, err, backend.ErrChunkNotFound)
	})
}
