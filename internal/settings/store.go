package settings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/decred/slog"

	"github.com/imrishuroy/go-storefront/internal/aws"
	"github.com/imrishuroy/go-storefront/internal/currency"
)

// Cache is an optional read-through cache for the currency symbol.
type Cache interface {
	GetCurrencySymbol(ctx context.Context) (symbol string, ok bool, err error)
	SetCurrencySymbol(ctx context.Context, symbol string) error
}

// Counter records fallback events.
type Counter interface {
	Count(ctx context.Context, name string, value float64)
}

// Store reads and writes storefront settings.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	cache     Cache
	metrics   Counter
	log       slog.Logger
	nowFunc   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithCache puts cache in front of the table.
func WithCache(cache Cache) Option {
	return func(s *Store) { s.cache = cache }
}

// WithMetrics reports fallbacks to counter.
func WithMetrics(counter Counter) Option {
	return func(s *Store) { s.metrics = counter }
}

// NewStore creates a settings Store.
func NewStore(client aws.DynamoDBAPI, tableName string, log slog.Logger, opts ...Option) *Store {
	s := &Store{
		client:    client,
		tableName: tableName,
		log:       log,
		nowFunc:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Defaults returns the settings used when nothing is stored.
func Defaults() Settings {
	return Settings{CurrencySymbol: currency.DefaultSymbol}
}

// GetSettings returns the stored settings. It never fails: a missing row or
// an unreachable table degrades to Defaults so pages keep rendering.
func (s *Store) GetSettings(ctx context.Context) Settings {
	if s.cache != nil {
		symbol, ok, err := s.cache.GetCurrencySymbol(ctx)
		switch {
		case err != nil:
			s.log.Warnf("Settings cache read failed: %v", err)
		case ok && symbol != "":
			return Settings{CurrencySymbol: symbol}
		}
	}

	row, err := s.get(ctx)
	if err != nil {
		if aws.IsThrottle(err) {
			s.log.Warnf("Settings table throttled (%s), using defaults", aws.ErrorCode(err))
		} else {
			s.log.Warnf("Falling back to default settings: %v", err)
		}
		if s.metrics != nil {
			s.metrics.Count(ctx, aws.MetricSettingsFallback, 1)
		}
		return Defaults()
	}
	if row == nil || strings.TrimSpace(row.Value) == "" {
		return Defaults()
	}

	if s.cache != nil {
		if err := s.cache.SetCurrencySymbol(ctx, row.Value); err != nil {
			s.log.Warnf("Settings cache write failed: %v", err)
		}
	}
	return Settings{CurrencySymbol: row.Value}
}

// SetCurrencySymbol trims symbol, substitutes the default for blank input
// and upserts the row. Concurrent writers resolve last-write-wins.
func (s *Store) SetCurrencySymbol(ctx context.Context, symbol string) (Settings, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		symbol = currency.DefaultSymbol
	}

	now := s.nowFunc().UTC()
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"key": &types.AttributeValueMemberS{Value: CurrencySymbolKey},
		},
		UpdateExpression: awsString("SET #v = :v, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{
			"#v": "value",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v":  &types.AttributeValueMemberS{Value: symbol},
			":ua": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		},
	}
	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		return Settings{}, fmt.Errorf("update item (currency symbol): %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetCurrencySymbol(ctx, symbol); err != nil {
			s.log.Warnf("Settings cache write failed: %v", err)
		}
	}
	return Settings{CurrencySymbol: symbol}, nil
}

func (s *Store) get(ctx context.Context) (*Row, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"key": &types.AttributeValueMemberS{Value: CurrencySymbolKey},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var row Row
	if err := attributevalue.UnmarshalMap(out.Item, &row); err != nil {
		return nil, fmt.Errorf("unmarshal settings row: %w", err)
	}
	return &row, nil
}

func awsString(s string) *string { return &s }
