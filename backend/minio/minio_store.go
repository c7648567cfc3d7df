// Package minio implements a chunk store on MinIO and other S3-compatible
// object storage.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/gridcache"
	"github.com/hupe1980/gridcache/backend"
)

// Store implements backend.Store for MinIO and S3-compatible storage.
// Chunks are stored as {prefix}/{owner}/{x}_{y}.chunk objects.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewStore creates a new MinIO chunk store.
// rootPrefix is prepended to all keys (e.g. "world1/").
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

func (s *Store) key(key gridcache.ChunkKey) string {
	return path.Join(s.prefix, key.OwnerID, fmt.Sprintf("%d_%d.chunk", key.X, key.Y))
}

// Fetch reads the chunk object.
func (s *Store) Fetch(ctx context.Context, key gridcache.ChunkKey) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil, backend.ErrChunkNotFound
		}
		return nil, err
	}
	return data, nil
}

// Persist writes the chunk object.
func (s *Store) Persist(ctx context.Context, key gridcache.ChunkKey, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(key), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return err
}

// Delete removes the chunk object.
func (s *Store) Delete(ctx context.Context, key gridcache.ChunkKey) error {
	return s.client.RemoveObject(ctx, s.bucket, s.key(key), minio.RemoveObjectOptions{})
}
