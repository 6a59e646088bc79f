package messaging

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// channel is the subset of *amqp.Channel the bike store uses
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// RabbitMQ carries order events on durable queues of the default exchange
type RabbitMQ struct {
	conn    *amqp.Connection
	channel channel
	mu      sync.Mutex // amqp channels are not safe for concurrent publishing
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	log.Println("✅ Connected to RabbitMQ")

	return &RabbitMQ{
		conn:    conn,
		channel: ch,
	}, nil
}

// DeclareQueue creates a durable queue if it doesn't exist
func (r *RabbitMQ) DeclareQueue(name string) error {
	_, err := r.channel.QueueDeclare(name, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}

	log.Printf("✅ Queue declared: %s", name)
	return nil
}

// Publish sends a persistent JSON event to queue via the default exchange
func (r *RabbitMQ) Publish(ctx context.Context, queue string, event []byte) error {
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         event,
	}

	r.mu.Lock()
	err := r.channel.PublishWithContext(ctx, "", queue, false, false, msg)
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queue, err)
	}

	log.Printf("📤 Event published to queue: %s", queue)
	return nil
}

// Consume returns deliveries from queue. Every delivery must be acked or
// nacked by the caller.
func (r *RabbitMQ) Consume(queue string) (<-chan amqp.Delivery, error) {
	deliveries, err := r.channel.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to consume from %s: %w", queue, err)
	}

	log.Printf("👂 Listening on queue: %s", queue)
	return deliveries, nil
}

// Close closes the channel and the connection. Consumers see their
// delivery channel closed.
func (r *RabbitMQ) Close() {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
}
