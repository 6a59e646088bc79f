package db

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/prudhivi99/bike-store/internal/models"
)

var (
	ErrBikeNotFound   = errors.New("bike not found")
	ErrBikeReferenced = errors.New("bike is referenced by existing orders")
	// ErrStockTooLow is returned by DebitStock when the stored quantity is
	// smaller than the debit.
	ErrStockTooLow = errors.New("stock too low for debit")
)

// Bikes is the bike CRUD contract implemented by the Postgres repository,
// the in-memory store and the cached decorator.
type Bikes interface {
	GetAll(ctx context.Context, searchTerm string) ([]models.Bike, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bike, error)
	Create(ctx context.Context, req models.CreateBikeRequest) (*models.Bike, error)
	Update(ctx context.Context, id uuid.UUID, req models.UpdateBikeRequest) (*models.Bike, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PlacementTx is the view of the store available inside one order placement.
// Everything written through it commits or rolls back together.
type PlacementTx interface {
	// LockBike loads the bike and holds it exclusively until the placement
	// ends. Returns ErrBikeNotFound when absent.
	LockBike(ctx context.Context, id uuid.UUID) (*models.Bike, error)
	// DebitStock subtracts quantity from the stored stock only if enough is
	// left, clearing inStock when it reaches 0. bike is refreshed with the
	// stored result. Returns ErrStockTooLow when the guard rejects the debit.
	DebitStock(ctx context.Context, bike *models.Bike, quantity int) error
	InsertOrder(ctx context.Context, order *models.Order) error
}

// Orders is the order persistence contract.
type Orders interface {
	WithPlacement(ctx context.Context, fn func(tx PlacementTx) error) error
	SumTotals(ctx context.Context) (float64, error)
}

// likePattern turns a search term into an escaped ILIKE substring pattern.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}
