// Package catalog stores the product catalogue.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-storefront/internal/aws"
)

// CategoryIndex is the products GSI keyed by category.
const CategoryIndex = "category-index"

var (
	// ErrNotFound is returned when a product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrExists is returned by Put when the product id is taken.
	ErrExists = errors.New("product already exists")
)

// Store encapsulates operations on the products table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new catalog Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Put creates a product. It never overwrites an existing one.
func (s *Store) Put(ctx context.Context, p Product) (Product, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.nowFunc().UTC()
	}
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return Product{}, fmt.Errorf("marshal product: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(product_id)"),
	})
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return Product{}, ErrExists
		}
		return Product{}, fmt.Errorf("put item: %w", err)
	}
	return p, nil
}

// Get fetches a product, returning ErrNotFound when absent.
func (s *Store) Get(ctx context.Context, productID string) (*Product, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"product_id": &types.AttributeValueMemberS{Value: productID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var p Product
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	return &p, nil
}

// List returns every product ordered by name.
func (s *Store) List(ctx context.Context) ([]Product, error) {
	p := dyn.NewScanPaginator(s.client, &dyn.ScanInput{
		TableName: &s.tableName,
	})
	var out []Product
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan products: %w", err)
		}
		var batch []Product
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal products: %w", err)
		}
		out = append(out, batch...)
	}
	sortByName(out)
	return out, nil
}

// ListByCategories returns the products of every named category, each
// product once, ordered by name.
func (s *Store) ListByCategories(ctx context.Context, categories []string) ([]Product, error) {
	seen := map[string]bool{}
	var out []Product
	for _, c := range categories {
		p := dyn.NewQueryPaginator(s.client, &dyn.QueryInput{
			TableName:              &s.tableName,
			IndexName:              awsString(CategoryIndex),
			KeyConditionExpression: awsString("category = :c"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":c": &types.AttributeValueMemberS{Value: c},
			},
		})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("query category %s: %w", c, err)
			}
			var batch []Product
			if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
				return nil, fmt.Errorf("unmarshal products: %w", err)
			}
			for _, prod := range batch {
				if seen[prod.ProductID] {
					continue
				}
				seen[prod.ProductID] = true
				out = append(out, prod)
			}
		}
	}
	sortByName(out)
	return out, nil
}

func sortByName(ps []Product) {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].Name == ps[j].Name {
			return ps[i].ProductID < ps[j].ProductID
		}
		return ps[i].Name < ps[j].Name
	})
}

func awsString(s string) *string { return &s }
