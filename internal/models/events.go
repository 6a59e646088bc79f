package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderPlacedEvent is published after an order and its inventory debit commit
type OrderPlacedEvent struct {
	OrderID           uuid.UUID `json:"order_id"`
	BikeID            uuid.UUID `json:"bike_id"`
	Email             string    `json:"email"`
	Quantity          int       `json:"quantity"`
	TotalPrice        float64   `json:"total_price"`
	RemainingQuantity int       `json:"remaining_quantity"`
	InStock           bool      `json:"in_stock"`
	PlacedAt          time.Time `json:"placed_at"`
}
