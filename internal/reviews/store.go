// Package reviews stores product reviews and seeds synthetic ones for
// demo catalogues.
package reviews

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/imrishuroy/go-storefront/internal/aws"
	"github.com/imrishuroy/go-storefront/internal/currency"
)

const batchSize = 25

// ErrUnprocessed is returned when DynamoDB leaves part of a batch unwritten.
var ErrUnprocessed = errors.New("batch write left unprocessed items")

// Store encapsulates operations on the reviews table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new reviews Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

func (s *Store) fill(r *Review) {
	if r.ReviewID == "" {
		r.ReviewID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.nowFunc().UTC()
	}
}

// Create inserts a single review, assigning its id and timestamp.
func (s *Store) Create(ctx context.Context, r Review) (Review, error) {
	s.fill(&r)
	item, err := attributevalue.MarshalMap(r)
	if err != nil {
		return Review{}, fmt.Errorf("marshal review: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(review_id)"),
	})
	if err != nil {
		return Review{}, fmt.Errorf("put item: %w", err)
	}
	return r, nil
}

// BatchCreate inserts reviews in chunks of 25. Unprocessed items are
// reported as ErrUnprocessed and not retried.
func (s *Store) BatchCreate(ctx context.Context, rs []Review) ([]Review, error) {
	out := make([]Review, 0, len(rs))
	for start := 0; start < len(rs); start += batchSize {
		end := min(start+batchSize, len(rs))
		reqs := make([]types.WriteRequest, 0, end-start)
		for _, r := range rs[start:end] {
			s.fill(&r)
			item, err := attributevalue.MarshalMap(r)
			if err != nil {
				return out, fmt.Errorf("marshal review: %w", err)
			}
			reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
			out = append(out, r)
		}
		res, err := s.client.BatchWriteItem(ctx, &dyn.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.tableName: reqs},
		})
		if err != nil {
			return out[:start], fmt.Errorf("batch write reviews: %w", err)
		}
		if n := len(res.UnprocessedItems[s.tableName]); n > 0 {
			return out[:start], fmt.Errorf("%w: %d reviews", ErrUnprocessed, n)
		}
	}
	return out, nil
}

// ListByProduct returns a product's reviews, newest first.
func (s *Store) ListByProduct(ctx context.Context, productID string) ([]Review, error) {
	p := dyn.NewQueryPaginator(s.client, &dyn.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: awsString("product_id = :p"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: productID},
		},
	})
	var out []Review
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query reviews: %w", err)
		}
		var batch []Review
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal reviews: %w", err)
		}
		out = append(out, batch...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Summarize counts reviews and averages their ratings to two decimals.
func Summarize(rs []Review) Summary {
	if len(rs) == 0 {
		return Summary{}
	}
	total := 0
	for _, r := range rs {
		total += r.Rating
	}
	return Summary{
		Count:   len(rs),
		Average: currency.RoundTo2(float64(total) / float64(len(rs))),
	}
}

func awsString(s string) *string { return &s }
