package reviews

import "time"

// Review represents the item stored in the reviews DynamoDB table.
type Review struct {
	ProductID string    `dynamodbav:"product_id" json:"productId"` // PK
	ReviewID  string    `dynamodbav:"review_id" json:"id"`         // SK
	UserID    string    `dynamodbav:"user_id" json:"userId"`
	UserName  string    `dynamodbav:"user_name" json:"userName"`
	Rating    int       `dynamodbav:"rating" json:"rating"`
	Comment   string    `dynamodbav:"comment,omitempty" json:"comment,omitempty"`
	Verified  bool      `dynamodbav:"verified" json:"verified"`
	Synthetic bool      `dynamodbav:"synthetic" json:"-"`
	CreatedAt time.Time `dynamodbav:"created_at" json:"createdAt"`
}

// Summary aggregates the ratings of a product.
type Summary struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}
