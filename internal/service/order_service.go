// Package service holds the order placement transaction and revenue
// aggregation. HTTP concerns live in handlers; persistence lives in db.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/prudhivi99/bike-store/internal/db"
	"github.com/prudhivi99/bike-store/internal/models"
)

// Business-rule failures. Each is terminal for the request.
var (
	ErrBikeNotFound      = errors.New("bike not found")
	ErrOutOfStock        = errors.New("bike is out of stock")
	ErrInsufficientStock = errors.New("insufficient stock to complete the order")
	ErrPriceMismatch     = errors.New("total price does not match bike price times quantity")
)

const DefaultPlacementTimeout = 10 * time.Second

var tracer = otel.Tracer("github.com/prudhivi99/bike-store/internal/service")

// OrderStore is the persistence the order service depends on
type OrderStore interface {
	WithPlacement(ctx context.Context, fn func(tx db.PlacementTx) error) error
	SumTotals(ctx context.Context) (float64, error)
}

// BikeInvalidator drops cached copies of a bike after its stock changes
type BikeInvalidator interface {
	Invalidate(ctx context.Context, id uuid.UUID)
}

// EventPublisher announces committed orders
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event models.OrderPlacedEvent) error
}

type OrderService struct {
	store            OrderStore
	cache            BikeInvalidator
	publisher        EventPublisher
	placementTimeout time.Duration
}

type Option func(*OrderService)

// WithBikeInvalidator registers the cache to invalidate after a debit
func WithBikeInvalidator(c BikeInvalidator) Option {
	return func(s *OrderService) { s.cache = c }
}

// WithEventPublisher registers the publisher for order.placed events
func WithEventPublisher(p EventPublisher) Option {
	return func(s *OrderService) { s.publisher = p }
}

// WithPlacementTimeout bounds how long one placement transaction may run
func WithPlacementTimeout(d time.Duration) Option {
	return func(s *OrderService) {
		if d > 0 {
			s.placementTimeout = d
		}
	}
}

func NewOrderService(store OrderStore, opts ...Option) *OrderService {
	s := &OrderService{
		store:            store,
		placementTimeout: DefaultPlacementTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder validates req against the live bike, debits its stock and
// records the order as one unit. Either both writes commit or neither does.
//
// The transaction is detached from the caller's cancellation so a client
// that hangs up cannot interrupt it halfway; it is bounded by the placement
// timeout instead.
func (s *OrderService) PlaceOrder(ctx context.Context, req models.PlaceOrderRequest) (*models.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.PlaceOrder")
	defer span.End()
	span.SetAttributes(
		attribute.String("bike.id", req.Product.String()),
		attribute.Int("order.quantity", req.Quantity),
	)

	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.placementTimeout)
	defer cancel()

	var (
		order models.Order
		bike  models.Bike
	)
	err := s.store.WithPlacement(txCtx, func(tx db.PlacementTx) error {
		b, err := tx.LockBike(txCtx, req.Product)
		if err != nil {
			if errors.Is(err, db.ErrBikeNotFound) {
				return ErrBikeNotFound
			}
			return err
		}

		if err := checkOrder(b, req); err != nil {
			return err
		}

		if err := tx.DebitStock(txCtx, b, req.Quantity); err != nil {
			if errors.Is(err, db.ErrStockTooLow) {
				return ErrInsufficientStock
			}
			return err
		}

		order = models.Order{
			ID:         uuid.New(),
			Email:      req.Email,
			Product:    req.Product,
			Quantity:   req.Quantity,
			TotalPrice: req.TotalPrice,
		}
		if err := tx.InsertOrder(txCtx, &order); err != nil {
			return err
		}

		bike = *b
		return nil
	})
	if err != nil {
		span.RecordError(err)
		if IsBusinessError(err) {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		span.SetStatus(codes.Error, "placement failed")
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	log.Printf("✅ Order %s placed: bike %s x%d, $%.2f (remaining %d)",
		order.ID, bike.ID, order.Quantity, order.TotalPrice, bike.Quantity)

	s.afterCommit(txCtx, &order, &bike)
	return &order, nil
}

// checkOrder applies the business rules in order: stock flag, quantity, price.
func checkOrder(b *models.Bike, req models.PlaceOrderRequest) error {
	if !b.InStock {
		return ErrOutOfStock
	}
	if b.Quantity < req.Quantity {
		return ErrInsufficientStock
	}

	expected := decimal.NewFromFloat(b.Price).Mul(decimal.NewFromInt(int64(req.Quantity)))
	if !expected.Equal(decimal.NewFromFloat(req.TotalPrice)) {
		return ErrPriceMismatch
	}

	return nil
}

// afterCommit runs the best-effort side effects of a committed placement.
// Failures are logged and never undo the order.
func (s *OrderService) afterCommit(ctx context.Context, order *models.Order, bike *models.Bike) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, bike.ID)
	}

	if s.publisher == nil {
		return
	}
	event := models.OrderPlacedEvent{
		OrderID:           order.ID,
		BikeID:            bike.ID,
		Email:             order.Email,
		Quantity:          order.Quantity,
		TotalPrice:        order.TotalPrice,
		RemainingQuantity: bike.Quantity,
		InStock:           bike.InStock,
		PlacedAt:          order.CreatedAt,
	}
	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		log.Printf("⚠️ Failed to publish event: %v", err)
	} else {
		log.Printf("📤 Published order.placed event for Order %s", order.ID)
	}
}

// TotalRevenue sums totalPrice over every committed order. Zero orders yield 0.
func (s *OrderService) TotalRevenue(ctx context.Context) (float64, error) {
	ctx, span := tracer.Start(ctx, "OrderService.TotalRevenue")
	defer span.End()

	total, err := s.store.SumTotals(ctx)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to calculate revenue: %w", err)
	}
	if total < 0 {
		return 0, fmt.Errorf("failed to calculate revenue: negative total %v", total)
	}

	return total, nil
}

// IsBusinessError reports whether err is one of the placement rule failures
func IsBusinessError(err error) bool {
	return errors.Is(err, ErrBikeNotFound) ||
		errors.Is(err, ErrOutOfStock) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrPriceMismatch)
}
