package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prudhivi99/bike-store/internal/models"
)

const OrderPlacedQueue = "order.placed"

// Queue is the part of messaging.RabbitMQ the publisher uses
type Queue interface {
	DeclareQueue(name string) error
	Publish(ctx context.Context, queue string, message []byte) error
}

type OrderPublisher struct {
	mq Queue
}

func NewOrderPublisher(mq Queue) (*OrderPublisher, error) {
	// Declare the queue
	if err := mq.DeclareQueue(OrderPlacedQueue); err != nil {
		return nil, err
	}

	return &OrderPublisher{mq: mq}, nil
}

// PublishOrderPlaced publishes an order.placed event
func (p *OrderPublisher) PublishOrderPlaced(ctx context.Context, event models.OrderPlacedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.mq.Publish(ctx, OrderPlacedQueue, data)
}
