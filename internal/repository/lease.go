package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"chat-widget/internal/storage"
)

const skLease = "LEASE#"

var _ storage.Locker = (*Client)(nil)

// now is swapped in tests.
var now = time.Now

func leaseKeyAttrs(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: historyPK(key)},
		"SK": &types.AttributeValueMemberS{Value: skLease},
	}
}

// Acquire claims the lease item for key. The put only succeeds when no lease
// exists or the existing one has expired; otherwise storage.ErrLocked.
func (c *Client) Acquire(ctx context.Context, key, owner string, ttl time.Duration) error {
	t := now()
	expires := t.Add(ttl)
	item := leaseKeyAttrs(key)
	item["owner"] = &types.AttributeValueMemberS{Value: owner}
	item["expiresAt"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expires.UnixMilli(), 10)}
	item["ttl"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expires.Unix(), 10)}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR expiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(t.UnixMilli(), 10)},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return storage.ErrLocked
		}
		return fmt.Errorf("repository: Acquire: %w", err)
	}
	return nil
}

// Release deletes the lease item if owner still holds it.
func (c *Client) Release(ctx context.Context, key, owner string) error {
	_, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(c.tableName),
		Key:                      leaseKeyAttrs(key),
		ConditionExpression:      aws.String("#owner = :owner"),
		ExpressionAttributeNames: map[string]string{"#owner": "owner"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: owner},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil
		}
		return fmt.Errorf("repository: Release: %w", err)
	}
	return nil
}
