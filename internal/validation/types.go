package validation

// CartLine is one product and quantity in a cart.
type CartLine struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=99"`
}

// CartRequest is the payload for POST /api/cart/quote and POST /api/checkout.
type CartRequest struct {
	Items []CartLine `json:"items" validate:"required,min=1,max=50,dive"` // distinct products
}

// CreateProductRequest is the payload for POST /api/admin/products.
type CreateProductRequest struct {
	ID          string  `json:"id,omitempty" validate:"omitempty,max=64"`
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description,omitempty" validate:"max=4000"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Category    string  `json:"category" validate:"required,max=64"`
}

// CreateReviewRequest is the payload for POST /api/products/:id/reviews.
type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment,omitempty" validate:"max=2000"`
}

// UpdateOrderStatusRequest is the payload for PUT /api/admin/orders/:id/status.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING CONFIRMED PROCESSING SHIPPED DELIVERED CANCELLED"`
}
