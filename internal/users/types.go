package users

import "time"

// Roles carried on a user row.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User represents the item stored in the users DynamoDB table.
type User struct {
	UserID    string    `dynamodbav:"user_id" json:"id"` // PK
	Email     string    `dynamodbav:"email,omitempty" json:"email,omitempty"`
	Name      string    `dynamodbav:"name" json:"name"`
	Role      string    `dynamodbav:"role" json:"role"`
	Synthetic bool      `dynamodbav:"synthetic" json:"-"`
	CreatedAt time.Time `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt time.Time `dynamodbav:"updated_at" json:"updatedAt"`
}

// Profile is the identity data taken from a session when a user signs in.
type Profile struct {
	UserID string
	Email  string
	Name   string
}
