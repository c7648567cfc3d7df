package backend

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/gridcache"
)

// Compression defines the compression algorithm used by CompressedStore.
type Compression uint8

const (
	// CompressionNone stores chunks uncompressed.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast, good for hot data).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD block compression (better ratio, good for
	// cold data).
	CompressionZSTD Compression = 2
)

// header: [algo uint8][uncompressedSize uint32 LE][payload...]
// An algo byte of CompressionNone means the payload is stored raw, which also
// covers payloads that did not shrink under compression.
const compressHeaderSize = 5

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// CompressedStore decorates a Store with transparent per-chunk compression.
// The persisted format is self-describing, so a store written with one
// algorithm can be read back regardless of the decorator's configuration.
type CompressedStore struct {
	inner Store
	algo  Compression
}

// NewCompressedStore wraps inner with the given compression algorithm.
func NewCompressedStore(inner Store, algo Compression) *CompressedStore {
	return &CompressedStore{inner: inner, algo: algo}
}

// Fetch reads and decompresses the chunk for key.
func (s *CompressedStore) Fetch(ctx context.Context, key gridcache.ChunkKey) ([]byte, error) {
	data, err := s.inner.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	return decompressChunk(data)
}

// Persist compresses and writes the chunk for key.
func (s *CompressedStore) Persist(ctx context.Context, key gridcache.ChunkKey, data []byte) error {
	return s.inner.Persist(ctx, key, compressChunk(data, s.algo))
}

// Delete removes the chunk.
func (s *CompressedStore) Delete(ctx context.Context, key gridcache.ChunkKey) error {
	return s.inner.Delete(ctx, key)
}

func compressChunk(data []byte, algo Compression) []byte {
	var compressed []byte

	switch algo {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		var c lz4.Compressor
		n, err := c.CompressBlock(data, buf)
		if err == nil && n > 0 && n < len(data) {
			compressed = buf[:n]
		}
	case CompressionZSTD:
		enc := getZstdEncoder()
		out := enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
		if len(out) < len(data) {
			compressed = out
		}
	}

	if compressed == nil {
		algo = CompressionNone
		compressed = data
	}

	out := make([]byte, compressHeaderSize+len(compressed))
	out[0] = byte(algo)
	binary.LittleEndian.PutUint32(out[1:], uint32(len(data)))
	copy(out[compressHeaderSize:], compressed)
	return out
}

func decompressChunk(data []byte) ([]byte, error) {
	if len(data) < compressHeaderSize {
		return nil, errors.New("compressed chunk: short header")
	}

	algo := Compression(data[0])
	rawSize := binary.LittleEndian.Uint32(data[1:])
	payload := data[compressHeaderSize:]

	switch algo {
	case CompressionNone:
		if uint32(len(payload)) != rawSize {
			return nil, errors.New("compressed chunk: size mismatch")
		}
		return payload, nil
	case CompressionLZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("compressed chunk: lz4: %w", err)
		}
		return out[:n], nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		out, err := dec.DecodeAll(payload, make([]byte, 0, rawSize))
		zstdDecoderPool.Put(dec)
		if err != nil {
			return nil, fmt.Errorf("compressed chunk: zstd: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("compressed chunk: unknown algorithm %d", algo)
	}
}
