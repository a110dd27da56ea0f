package users

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-storefront/internal/aws/awstest"
)

const table = "users"

func newStore() (*Store, *awstest.Dynamo) {
	fake := awstest.NewDynamo().CreateTable(table, "user_id", "")
	return NewStore(fake, table), fake
}

func TestSync_CreatesThenPreservesRole(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()
	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.nowFunc = func() time.Time { return first }

	u, err := s.Sync(ctx, Profile{UserID: "u1", Email: "a@example.com", Name: "Aina"})
	require.NoError(t, err)
	assert.Equal(t, RoleCustomer, u.Role)
	assert.True(t, u.CreatedAt.Equal(first))
	assert.False(t, u.Synthetic)

	// promote out of band, then sign in again with a new name
	_, err = s.client.UpdateItem(ctx, promoteInput(table, "u1"))
	require.NoError(t, err)

	later := first.Add(time.Hour)
	s.nowFunc = func() time.Time { return later }
	u, err = s.Sync(ctx, Profile{UserID: "u1", Email: "a@example.com", Name: "Aina B"})
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, u.Role)
	assert.Equal(t, "Aina B", u.Name)
	assert.True(t, u.CreatedAt.Equal(first))
	assert.True(t, u.UpdatedAt.Equal(later))
}

func TestSync_EmptyID(t *testing.T) {
	s, _ := newStore()
	_, err := s.Sync(context.Background(), Profile{})
	assert.Error(t, err)
}

func TestGet_Missing(t *testing.T) {
	s, _ := newStore()
	u, err := s.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestBatchPut_Chunks(t *testing.T) {
	s, fake := newStore()
	us := make([]User, 60)
	for i := range us {
		us[i] = User{UserID: fmt.Sprintf("syn-%02d", i), Name: "Reviewer", Role: RoleCustomer, Synthetic: true}
	}

	require.NoError(t, s.BatchPut(context.Background(), us))
	assert.Equal(t, 3, fake.Calls("BatchWriteItem"))
	assert.Len(t, fake.Items(table), 60)

	got, err := s.Get(context.Background(), "syn-42")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Synthetic)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestBatchPut_Error(t *testing.T) {
	s, fake := newStore()
	fake.Fail("BatchWriteItem", errors.New("throttled"))

	err := s.BatchPut(context.Background(), []User{{UserID: "x"}})
	assert.Error(t, err)
}

func promoteInput(tableName, userID string) *dyn.UpdateItemInput {
	return &dyn.UpdateItemInput{
		TableName: &tableName,
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
		},
		UpdateExpression:         awsString("SET #r = :r"),
		ExpressionAttributeNames: map[string]string{"#r": "role"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":r": &types.AttributeValueMemberS{Value: RoleAdmin},
		},
	}
}
