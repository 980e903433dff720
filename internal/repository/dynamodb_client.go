package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"chat-widget/internal/domain"
	"chat-widget/internal/storage"
)

const (
	pkPrefix    = "HISTORY#"
	skState     = "STATE#"
	ttlDuration = 30 * 24 * time.Hour // 30-day TTL
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Client stores serialized chat histories in a DynamoDB table, one item per
// history key. It satisfies storage.Store.
type Client struct {
	api       dynamodbAPI
	tableName string
}

var _ storage.Store = (*Client)(nil)

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

// historyPK returns the partition key for a history key.
func historyPK(key string) string {
	return pkPrefix + key
}

// ttlValue returns a Unix timestamp 30 days in the future.
func ttlValue() int64 {
	return time.Now().Add(ttlDuration).Unix()
}

func keyAttrs(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: historyPK(key)},
		"SK": &types.AttributeValueMemberS{Value: skState},
	}
}

// Load returns the stored payload for key, or storage.ErrNotFound.
func (c *Client) Load(ctx context.Context, key string) ([]byte, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            keyAttrs(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: Load get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, storage.ErrNotFound
	}

	rec, err := itemToRecord(out.Item)
	if err != nil {
		return nil, fmt.Errorf("repository: Load decode: %w", err)
	}
	return []byte(rec.Payload), nil
}

// Save writes or replaces the history item for key.
func (c *Client) Save(ctx context.Context, key string, data []byte) error {
	rec := NewRecord(key, string(data))
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      recordItem(rec),
	})
	if err != nil {
		return fmt.Errorf("repository: Save: %w", err)
	}
	return nil
}

// Delete removes the history item for key. Missing items are not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key:       keyAttrs(key),
	})
	if err != nil {
		return fmt.Errorf("repository: Delete: %w", err)
	}
	return nil
}

// NewRecord constructs a HistoryRecord with PK/SK/TTL set from key and current time.
func NewRecord(key, payload string) domain.HistoryRecord {
	return domain.HistoryRecord{
		PK:        historyPK(key),
		SK:        skState,
		Key:       key,
		Payload:   payload,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		TTL:       ttlValue(),
	}
}

// itemToRecord converts a DynamoDB attribute map to a HistoryRecord.
func itemToRecord(item map[string]types.AttributeValue) (domain.HistoryRecord, error) {
	pk, err := strAttr(item, "PK")
	if err != nil {
		return domain.HistoryRecord{}, err
	}
	sk, err := strAttr(item, "SK")
	if err != nil {
		return domain.HistoryRecord{}, err
	}
	payload, err := strAttr(item, "payload")
	if err != nil {
		return domain.HistoryRecord{}, err
	}
	key, _ := strAttr(item, "historyKey")      // allow empty
	updatedAt, _ := strAttr(item, "updatedAt") // allow empty
	ttl, _ := intAttr(item, "ttl")

	return domain.HistoryRecord{
		PK:        pk,
		SK:        sk,
		Key:       key,
		Payload:   payload,
		UpdatedAt: updatedAt,
		TTL:       int64(ttl),
	}, nil
}

func recordItem(rec domain.HistoryRecord) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: rec.PK},
		"SK":         &types.AttributeValueMemberS{Value: rec.SK},
		"historyKey": &types.AttributeValueMemberS{Value: rec.Key},
		"payload":    &types.AttributeValueMemberS{Value: rec.Payload},
		"updatedAt":  &types.AttributeValueMemberS{Value: rec.UpdatedAt},
		"ttl":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", rec.TTL)},
	}
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
