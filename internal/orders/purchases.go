package orders

import (
	"context"
	"fmt"
	"strings"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// HasUserPurchasedProduct reports whether userID has at least one order in
// a completed status containing productID. Finding nothing is not an error.
func (s *Store) HasUserPurchasedProduct(ctx context.Context, userID, productID string) (bool, error) {
	if userID == "" || productID == "" {
		return false, nil
	}

	values := map[string]types.AttributeValue{
		":uid": &types.AttributeValueMemberS{Value: userID},
	}
	placeholders := make([]string, 0, len(CompletedStatuses))
	for i, st := range CompletedStatuses {
		ph := fmt.Sprintf(":s%d", i)
		placeholders = append(placeholders, ph)
		values[ph] = &types.AttributeValueMemberS{Value: st}
	}

	p := dyn.NewQueryPaginator(s.client, &dyn.QueryInput{
		TableName:                 &s.ordersTable,
		IndexName:                 awsString(UserIndex),
		KeyConditionExpression:    awsString("user_id = :uid"),
		FilterExpression:          awsString("#s IN (" + strings.Join(placeholders, ", ") + ")"),
		ProjectionExpression:      awsString("order_id"),
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return false, fmt.Errorf("query completed orders: %w", err)
		}
		for _, item := range page.Items {
			id, ok := item["order_id"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			found, err := s.hasItem(ctx, id.Value, productID)
			if err != nil {
				return false, err
			}
			if found {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *Store) hasItem(ctx context.Context, orderID, productID string) (bool, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.itemsTable,
		Key: map[string]types.AttributeValue{
			"order_id":   &types.AttributeValueMemberS{Value: orderID},
			"product_id": &types.AttributeValueMemberS{Value: productID},
		},
		ProjectionExpression: awsString("order_id"),
	})
	if err != nil {
		return false, fmt.Errorf("get order item: %w", err)
	}
	return len(out.Item) > 0, nil
}
