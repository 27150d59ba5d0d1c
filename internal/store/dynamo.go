package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// collectionItem is one row per collection, keyed by name.
type collectionItem struct {
	Name      string `dynamodbav:"name"`
	Data      string `dynamodbav:"data"`
	UpdatedAt string `dynamodbav:"updatedAt"`
}

// DynamoBackend keeps each collection as a single item.
type DynamoBackend struct {
	client    dynamoAPI
	tableName string
}

func NewDynamoBackend(client dynamoAPI, tableName string) *DynamoBackend {
	if client == nil {
		panic("store: dynamodb client required")
	}
	if strings.TrimSpace(tableName) == "" {
		panic("store: dynamodb table name required")
	}
	return &DynamoBackend{client: client, tableName: tableName}
}

func (b *DynamoBackend) Name() string { return "dynamodb" }

func (b *DynamoBackend) Load(ctx context.Context, c Collection) ([]byte, error) {
	out, err := b.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(b.tableName),
		Key:            map[string]types.AttributeValue{"name": &types.AttributeValueMemberS{Value: string(c)}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("store: dynamodb get %s: %w", c, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var item collectionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("store: dynamodb decode %s: %w", c, err)
	}
	return []byte(item.Data), nil
}

func (b *DynamoBackend) Save(ctx context.Context, c Collection, data []byte) error {
	item, err := attributevalue.MarshalMap(collectionItem{
		Name:      string(c),
		Data:      string(data),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("store: dynamodb encode %s: %w", c, err)
	}
	if _, err := b.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(b.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("store: dynamodb put %s: %w", c, err)
	}
	return nil
}

func (b *DynamoBackend) Close() error { return nil }
