package catalog

import "time"

// Product represents the item stored in the products DynamoDB table.
type Product struct {
	ProductID   string    `dynamodbav:"product_id" json:"id"` // PK
	Name        string    `dynamodbav:"name" json:"name"`
	Description string    `dynamodbav:"description,omitempty" json:"description,omitempty"`
	Price       float64   `dynamodbav:"price" json:"price"`
	Category    string    `dynamodbav:"category" json:"category"` // category-index PK
	CreatedAt   time.Time `dynamodbav:"created_at" json:"createdAt"`
}
