package consumer

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/prudhivi99/bike-store/internal/models"
)

// Invalidator drops cached copies of a bike
type Invalidator interface {
	Invalidate(ctx context.Context, id uuid.UUID)
}

// CacheConsumer drops cached bikes named in order.placed events, so the shared
// cache catches up with debits even when the placing instance failed to
// invalidate.
type CacheConsumer struct {
	cache Invalidator
}

func NewCacheConsumer(cache Invalidator) *CacheConsumer {
	return &CacheConsumer{cache: cache}
}

// ProcessOrderPlaced handles order.placed events until messages is closed
// or ctx is done
func (c *CacheConsumer) ProcessOrderPlaced(ctx context.Context, messages <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				log.Println("👋 order.placed consumer stopped")
				return
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *CacheConsumer) handle(ctx context.Context, msg amqp.Delivery) {
	var event models.OrderPlacedEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		log.Printf("❌ Failed to parse event: %v", err)
		msg.Nack(false, false) // Don't requeue bad messages
		return
	}

	if event.BikeID == uuid.Nil {
		log.Printf("❌ Event for order %s has no bike id", event.OrderID)
		msg.Nack(false, false)
		return
	}

	c.cache.Invalidate(ctx, event.BikeID)
	if !event.InStock {
		log.Printf("📉 Bike %s sold out", event.BikeID)
	}

	msg.Ack(false)
}
