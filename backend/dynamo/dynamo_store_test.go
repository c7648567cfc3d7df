package dynamo

import (
	"context"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/gridcache"
	"github.com/hupe1980/gridcache/backend"
)

// mockDDBClient is an in-memory DynamoDB mock for testing.
type mockDDBClient struct {
	mu    sync.RWMutex
	items map[string]map[string]types.AttributeValue
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{
		items: make(map[string]map[string]types.AttributeValue),
	}
}

func ddbKey(attrs map[string]types.AttributeValue) string {
	owner := attrs["owner_id"].(*types.AttributeValueMemberS).Value
	coord := attrs["coord"].(*types.AttributeValueMemberS).Value
	return owner + "|" + coord
}

func (m *mockDDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if item, ok := m.items[ddbKey(params.Key)]; ok {
		return &dynamodb.GetItemOutput{Item: item}, nil
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockDDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[ddbKey(params.Item)] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, ddbKey(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMockDDBClient(), "gridcache-chunks")
	key := gridcache.ChunkKey{OwnerID: "poi-1", X: -3, Y: 7}

	require.NoError(t, store.Persist(ctx, key, []byte("terrain")))

	data, err := store.Fetch(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("terrain"), data)
}

func TestStore_FetchMissing(t *testing.T) {
	store := NewStore(newMockDDBClient(), "gridcache-chunks")

	_, err := store.Fetch(context.Background(), gridcache.ChunkKey{OwnerID: "poi-1", X: 0, Y: 0})
	assert.ErrorIs(t, err, backend.ErrChunkNotFound)
}

func TestStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMockDDBClient(), "gridcache-chunks")
	key := gridcache.ChunkKey{OwnerID: "poi-1", X: 1, Y: 1}

	require.NoError(t, store.Persist(ctx, key, []byte("v1")))
	require.NoError(t, store.Persist(ctx, key, []byte("v2")))

	data, err := store.Fetch(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMockDDBClient(), "gridcache-chunks")
	key := gridcache.ChunkKey{OwnerID: "poi-1", X: 2, Y: 2}

	require.NoError(t, store.Persist(ctx, key, []byte("v")))
	require.NoError(t, store.Delete(ctx, key))

	_, err := store.Fetch(ctx, key)
	assert.ErrorIs(t, err, backend.ErrChunkNotFound)

	// Deleting a missing chunk is not an error.
	assert.NoError(t, store.Delete(ctx, key))
}

func TestStore_CoordinateIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMockDDBClient(), "gridcache-chunks")

	// "1:12" and "11:2" must not collide in the sort key.
	a := gridcache.ChunkKey{OwnerID: "o", X: 1, Y: 12}
	b := gridcache.ChunkKey{OwnerID: "o", X: 11, Y: 2}

	require.NoError(t, store.Persist(ctx, a, []byte("a")))
	require.NoError(t, store.Persist(ctx, b, []byte("b")))

	dataA, err := store.Fetch(ctx, a)
	require.NoError(t, err)
	dataB, err := store.Fetch(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), dataA)
	assert.Equal(t, []byte("b"), dataB)
}
