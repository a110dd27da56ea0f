// Package users keeps the user rows referenced by orders and reviews.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-storefront/internal/aws"
)

// batchSize is the BatchWriteItem request limit.
const batchSize = 25

// ErrUnprocessed is returned when DynamoDB leaves part of a batch unwritten.
var ErrUnprocessed = errors.New("batch write left unprocessed items")

// Store encapsulates operations on the users table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new users Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Sync upserts the user described by p. Email and name follow the latest
// sign-in; role and created_at are only set the first time.
func (s *Store) Sync(ctx context.Context, p Profile) (*User, error) {
	if p.UserID == "" {
		return nil, errors.New("empty user id")
	}
	now, err := attributevalue.Marshal(s.nowFunc().UTC())
	if err != nil {
		return nil, fmt.Errorf("marshal time: %w", err)
	}
	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: p.UserID},
		},
		UpdateExpression: awsString("SET email = :e, #n = :n, #r = if_not_exists(#r, :r), created_at = if_not_exists(created_at, :now), updated_at = :now, synthetic = if_not_exists(synthetic, :f)"),
		ExpressionAttributeNames: map[string]string{
			"#n": "name",
			"#r": "role",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":e":   &types.AttributeValueMemberS{Value: p.Email},
			":n":   &types.AttributeValueMemberS{Value: p.Name},
			":r":   &types.AttributeValueMemberS{Value: RoleCustomer},
			":now": now,
			":f":   &types.AttributeValueMemberBOOL{Value: false},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	var u User
	if err := attributevalue.UnmarshalMap(out.Attributes, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

// Get returns the user, or nil when it does not exist.
func (s *Store) Get(ctx context.Context, userID string) (*User, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var u User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

// BatchPut writes users in chunks of 25. Existing rows with the same id are
// overwritten.
func (s *Store) BatchPut(ctx context.Context, us []User) error {
	now := s.nowFunc().UTC()
	for start := 0; start < len(us); start += batchSize {
		end := min(start+batchSize, len(us))
		reqs := make([]types.WriteRequest, 0, end-start)
		for _, u := range us[start:end] {
			if u.CreatedAt.IsZero() {
				u.CreatedAt = now
			}
			if u.UpdatedAt.IsZero() {
				u.UpdatedAt = u.CreatedAt
			}
			item, err := attributevalue.MarshalMap(u)
			if err != nil {
				return fmt.Errorf("marshal user: %w", err)
			}
			reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
		}
		out, err := s.client.BatchWriteItem(ctx, &dyn.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.tableName: reqs},
		})
		if err != nil {
			return fmt.Errorf("batch write users: %w", err)
		}
		if n := len(out.UnprocessedItems[s.tableName]); n > 0 {
			return fmt.Errorf("%w: %d users", ErrUnprocessed, n)
		}
	}
	return nil
}

func awsString(s string) *string { return &s }
