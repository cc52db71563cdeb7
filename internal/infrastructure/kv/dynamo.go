package kv

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// DynamoStore keeps one item per key. Batches are written with TransactWriteItems,
// which rejects two actions on the same key, so ops are collapsed first.
type DynamoStore struct {
	client    DynamoAPI
	tableName string
}

// dynamoRecord represents the DynamoDB item structure
type dynamoRecord struct {
	Key       string `dynamodbav:"record_key"`
	Value     []byte `dynamodbav:"record_value"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

func NewDynamoStore(client DynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
	}
}

func (s *DynamoStore) keyOf(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"record_key": &types.AttributeValueMemberS{Value: key},
	}
}

func (s *DynamoStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.keyOf(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, wrap("dynamodb get "+key, err)
	}
	if len(out.Item) == 0 {
		return nil, false, nil
	}

	var rec dynamoRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, false, wrap("dynamodb decode "+key, err)
	}
	return rec.Value, true, nil
}

func (s *DynamoStore) Apply(ctx context.Context, ops ...Op) error {
	ops = collapse(ops)
	if len(ops) == 0 {
		return nil
	}

	now := time.Now().Format(time.RFC3339Nano)
	items := make([]types.TransactWriteItem, 0, len(ops))
	for _, op := range ops {
		if op.Delete {
			items = append(items, types.TransactWriteItem{
				Delete: &types.Delete{
					TableName: aws.String(s.tableName),
					Key:       s.keyOf(op.Key),
				},
			})
			continue
		}

		av, err := attributevalue.MarshalMap(dynamoRecord{
			Key:       op.Key,
			Value:     op.Value,
			UpdatedAt: now,
		})
		if err != nil {
			return wrap("dynamodb encode "+op.Key, err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(s.tableName),
				Item:      av,
			},
		})
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	return wrap("dynamodb transact", err)
}
