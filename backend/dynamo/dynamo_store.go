// Package dynamo implements a chunk store on Amazon DynamoDB, one item per
// chunk. DynamoDB's 400KB item limit comfortably fits compressed chunk
// payloads; larger worlds belong on the S3 store.
//
// Table schema:
//   - Partition key: owner_id (string)
//   - Sort key: coord (string, "{x}:{y}")
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name gridcache-chunks \
//	  --attribute-definitions AttributeName=owner_id,AttributeType=S AttributeName=coord,AttributeType=S \
//	  --key-schema AttributeName=owner_id,KeyType=HASH AttributeName=coord,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/gridcache"
	"github.com/hupe1980/gridcache/backend"
)

// Client is the subset of the DynamoDB API the store uses. *dynamodb.Client
// satisfies it.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Store implements backend.Store on a DynamoDB table.
type Store struct {
	client    Client
	tableName string
}

// NewStore creates a new DynamoDB chunk store.
func NewStore(client Client, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
	}
}

func itemKey(key gridcache.ChunkKey) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"owner_id": &types.AttributeValueMemberS{Value: key.OwnerID},
		"coord":    &types.AttributeValueMemberS{Value: fmt.Sprintf("%d:%d", key.X, key.Y)},
	}
}

// Fetch reads the chunk item.
func (s *Store) Fetch(ctx context.Context, key gridcache.ChunkKey) ([]byte, error) {
	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            itemKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if resp.Item == nil {
		return nil, backend.ErrChunkNotFound
	}

	payload, ok := resp.Item["payload"].(*types.AttributeValueMemberB)
	if !ok {
		return nil, fmt.Errorf("chunk item %s: missing payload attribute", key)
	}
	return payload.Value, nil
}

// Persist writes the chunk item.
func (s *Store) Persist(ctx context.Context, key gridcache.ChunkKey, data []byte) error {
	item := itemKey(key)
	item["payload"] = &types.AttributeValueMemberB{Value: data}

	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	return err
}

// Delete removes the chunk item.
func (s *Store) Delete(ctx context.Context, key gridcache.ChunkKey) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       itemKey(key),
	})
	return err
}
