package models

import (
	"time"

	"github.com/google/uuid"
)

type Order struct {
	ID         uuid.UUID `json:"_id"`
	Email      string    `json:"email"`
	Product    uuid.UUID `json:"product"`
	Quantity   int       `json:"quantity"`
	TotalPrice float64   `json:"totalPrice"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// CreateOrderRequest is the normalized order payload. TotalPrice is a pointer
// so that a zero total still satisfies required.
type CreateOrderRequest struct {
	Email      string   `json:"email" binding:"required,email"`
	Product    string   `json:"product" binding:"required"` // parsed by Normalize
	Quantity   int      `json:"quantity" binding:"required,min=1"`
	TotalPrice *float64 `json:"totalPrice" binding:"required,min=0"`
}

// PlaceOrderRequest is what the order service consumes once the payload has
// passed the schema gate.
type PlaceOrderRequest struct {
	Email      string
	Product    uuid.UUID
	Quantity   int
	TotalPrice float64
}

// Normalize converts a bound request into a PlaceOrderRequest.
func (r CreateOrderRequest) Normalize() (PlaceOrderRequest, error) {
	id, err := uuid.Parse(r.Product)
	if err != nil {
		return PlaceOrderRequest{}, err
	}

	var total float64
	if r.TotalPrice != nil {
		total = *r.TotalPrice
	}

	return PlaceOrderRequest{
		Email:      r.Email,
		Product:    id,
		Quantity:   r.Quantity,
		TotalPrice: total,
	}, nil
}

type Revenue struct {
	TotalRevenue float64 `json:"totalRevenue"`
}
