package orders

import (
	"time"

	"github.com/imrishuroy/go-storefront/internal/currency"
)

// Order statuses
const (
	StatusPending    = "PENDING"
	StatusConfirmed  = "CONFIRMED"
	StatusProcessing = "PROCESSING"
	StatusShipped    = "SHIPPED"
	StatusDelivered  = "DELIVERED"
	StatusCancelled  = "CANCELLED"
)

// Statuses lists every known status in lifecycle order.
var Statuses = []string{
	StatusPending,
	StatusConfirmed,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// CompletedStatuses are the statuses that count as proof of purchase.
// PENDING and CANCELLED orders never do.
var CompletedStatuses = []string{
	StatusConfirmed,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
}

// IsCompleted reports whether status counts as a completed purchase.
func IsCompleted(status string) bool {
	for _, s := range CompletedStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ValidStatus reports whether status is a known order status.
func ValidStatus(status string) bool {
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// Order represents the item stored in the Orders DynamoDB table.
type Order struct {
	OrderID        string    `dynamodbav:"order_id" json:"orderId"` // PK
	UserID         string    `dynamodbav:"user_id" json:"userId"`   // user_id-index PK
	Status         string    `dynamodbav:"status" json:"status"`
	Total          float64   `dynamodbav:"total" json:"total"`
	CurrencySymbol string    `dynamodbav:"currency_symbol" json:"currencySymbol"`
	IdempotencyKey string    `dynamodbav:"idempotency_key,omitempty" json:"-"`
	CreatedAt      time.Time `dynamodbav:"created_at" json:"createdAt"` // user_id-index SK
	UpdatedAt      time.Time `dynamodbav:"updated_at" json:"updatedAt"`
}

// Item is an order line. UserID is copied from the parent order.
type Item struct {
	OrderID   string  `dynamodbav:"order_id" json:"orderId"`     // PK
	ProductID string  `dynamodbav:"product_id" json:"productId"` // SK
	UserID    string  `dynamodbav:"user_id" json:"-"`
	Name      string  `dynamodbav:"name" json:"name"`
	Quantity  int     `dynamodbav:"quantity" json:"quantity"`
	UnitPrice float64 `dynamodbav:"unit_price" json:"unitPrice"`
	LineTotal float64 `dynamodbav:"line_total" json:"lineTotal"`
}

// PlacedMessage is the payload sent from API -> SQS -> worker when an
// order is placed.
type PlacedMessage struct {
	OrderID        string `json:"order_id"`
	IdempotencyKey string `json:"idempotency_key"`
	CorrelationID  string `json:"correlation_id,omitempty"`
}

// Receipt is the checkout response body. It is stored on the idempotency
// record so replays return the same bytes.
type Receipt struct {
	OrderID      string  `json:"orderId"`
	Status       string  `json:"status"`
	Total        float64 `json:"total"`
	TotalDisplay string  `json:"totalDisplay"`
}

// NewReceipt builds the receipt for o.
func NewReceipt(o Order) Receipt {
	return Receipt{
		OrderID:      o.OrderID,
		Status:       o.Status,
		Total:        currency.RoundTo2(o.Total),
		TotalDisplay: currency.FormatPrice(o.Total, o.CurrencySymbol),
	}
}
