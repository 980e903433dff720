package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"chat-widget/internal/storage"
)

type fakeDynamo struct {
	getOut       *dynamodb.GetItemOutput
	getErr       error
	putErr       error
	deleteErr    error
	lastGetInput *dynamodb.GetItemInput
	lastPutInput *dynamodb.PutItemInput
	lastDelInput *dynamodb.DeleteItemInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetInput = in
	return f.getOut, f.getErr
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.lastDelInput = in
	return &dynamodb.DeleteItemOutput{}, f.deleteErr
}

func makeItem(key, payload string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: historyPK(key)},
		"SK":         &types.AttributeValueMemberS{Value: skState},
		"historyKey": &types.AttributeValueMemberS{Value: key},
		"payload":    &types.AttributeValueMemberS{Value: payload},
		"ttl":        &types.AttributeValueMemberN{Value: "1700000000"},
	}
}

func mustNewClient(t *testing.T, db *fakeDynamo) *Client {
	t.Helper()
	c, err := New(db, "test-table")
	require.NoError(t, err)
	return c
}

func sAttr(t *testing.T, item map[string]types.AttributeValue, key string) string {
	t.Helper()
	v, ok := item[key].(*types.AttributeValueMemberS)
	require.True(t, ok, "attribute %q", key)
	return v.Value
}

func TestLoad_HappyPath(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: makeItem("chatHistory#abc", `[{"id":"1"}]`)}}
	c := mustNewClient(t, db)
	data, err := c.Load(context.Background(), "chatHistory#abc")
	require.NoError(t, err)
	require.Equal(t, `[{"id":"1"}]`, string(data))
	require.True(t, *db.lastGetInput.ConsistentRead)
	require.Equal(t, "HISTORY#chatHistory#abc", sAttr(t, db.lastGetInput.Key, "PK"))
	require.Equal(t, skState, sAttr(t, db.lastGetInput.Key, "SK"))
}

func TestLoad_MissingItem(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{}}
	c := mustNewClient(t, db)
	_, err := c.Load(context.Background(), "chatHistory")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLoad_GetItemError(t *testing.T) {
	db := &fakeDynamo{getErr: errors.New("boom")}
	c := mustNewClient(t, db)
	_, err := c.Load(context.Background(), "chatHistory")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Load get item")
	require.NotErrorIs(t, err, storage.ErrNotFound)
}

func TestLoad_MalformedPayload(t *testing.T) {
	item := makeItem("chatHistory", "x")
	item["payload"] = &types.AttributeValueMemberN{Value: "1"}
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: item}}
	c := mustNewClient(t, db)
	_, err := c.Load(context.Background(), "chatHistory")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a string")
}

func TestSave_HappyPath(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	err := c.Save(context.Background(), "chatHistory", []byte(`[]`))
	require.NoError(t, err)
	require.Equal(t, "test-table", *db.lastPutInput.TableName)
	require.Equal(t, `[]`, sAttr(t, db.lastPutInput.Item, "payload"))
	require.Equal(t, "chatHistory", sAttr(t, db.lastPutInput.Item, "historyKey"))
	require.NotEmpty(t, sAttr(t, db.lastPutInput.Item, "updatedAt"))
	require.Nil(t, db.lastPutInput.ConditionExpression, "saves overwrite: last writer wins")
}

func TestSave_DynamoError(t *testing.T) {
	db := &fakeDynamo{putErr: errors.New("ProvisionedThroughputExceededException")}
	c := mustNewClient(t, db)
	err := c.Save(context.Background(), "chatHistory", []byte(`[]`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "Save")
}

func TestDelete(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	require.NoError(t, c.Delete(context.Background(), "chatHistory"))
	require.Equal(t, "HISTORY#chatHistory", sAttr(t, db.lastDelInput.Key, "PK"))

	db.deleteErr = errors.New("internal server error")
	err := c.Delete(context.Background(), "chatHistory")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Delete")
}

func TestNewRecord_Fields(t *testing.T) {
	rec := NewRecord("chatHistory#conv-1", "[]")
	require.Equal(t, "HISTORY#chatHistory#conv-1", rec.PK)
	require.Equal(t, skState, rec.SK)
	require.Equal(t, "[]", rec.Payload)
	require.NotEmpty(t, rec.UpdatedAt)
	require.Greater(t, rec.TTL, int64(0))
}

func TestItemRoundTrip(t *testing.T) {
	rec := NewRecord("k", `[{"text":"hi"}]`)
	got, err := itemToRecord(recordItem(rec))
	require.NoError(t, err)
	require.Equal(t, rec, got)
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil, "test-table")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")
}

func TestNew_EmptyTableName(t *testing.T) {
	_, err := New(&fakeDynamo{}, " ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be empty")
}
