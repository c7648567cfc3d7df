package minio

import (
	"context"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/gridcache"
	"github.com/hupe1980/gridcache/backend"
)

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := "localhost:9000"
	accessKey := "minioadmin"
	secretKey := "minioadmin"
	bucket := "test-gridcache"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	// Check if MinIO is reachable
	_, err = client.ListBuckets(ctx)
	if err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	// Ensure bucket exists
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		err = client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
		require.NoError(t, err)
	}

	store := NewStore(client, bucket, "test-prefix/")
	key := gridcache.ChunkKey{OwnerID: "poi-1", X: -3, Y: 7}

	t.Cleanup(func() {
		_ = store.Delete(ctx, key)
	})

	// Persist and fetch round trip
	data := []byte("hello minio chunk")
	require.NoError(t, store.Persist(ctx, key, data))

	got, err := store.Fetch(ctx, key)
	require.NoError(t, err)
	require.Equal(t, data, got)

	// Missing chunk
	_, err = store.Fetch(ctx, gridcache.ChunkKey{OwnerID: "poi-1", X: 99, Y: 99})
	assert.ErrorIs(t, err, backend.ErrChunkNotFound)

	// Delete
	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Fetch(ctx, key)
	assert.ErrorIs(t, err, backend.ErrChunkNotFound)
}
