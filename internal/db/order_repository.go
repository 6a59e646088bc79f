package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/prudhivi99/bike-store/internal/models"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(database *PostgresDB) *OrderRepository {
	return &OrderRepository{db: database.Conn}
}

// WithPlacement runs fn inside one transaction. The transaction commits only
// if fn returns nil; any error rolls back every write made through tx.
func (r *OrderRepository) WithPlacement(ctx context.Context, fn func(tx PlacementTx) error) error {
	// Start transaction
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgPlacementTx{tx: tx}); err != nil {
		return err
	}

	// Commit transaction
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// SumTotals returns the revenue across all committed orders
func (r *OrderRepository) SumTotals(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(total_price), 0) FROM orders").Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum order totals: %w", err)
	}

	return total, nil
}

type pgPlacementTx struct {
	tx *sql.Tx
}

// LockBike takes a row lock, so placements against the same bike run one at a time
func (t *pgPlacementTx) LockBike(ctx context.Context, id uuid.UUID) (*models.Bike, error) {
	query := "SELECT " + bikeColumns + " FROM bikes WHERE id = $1 FOR UPDATE"

	b, err := scanBike(t.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBikeNotFound
		}
		return nil, fmt.Errorf("failed to lock bike: %w", err)
	}

	return b, nil
}

func (t *pgPlacementTx) DebitStock(ctx context.Context, bike *models.Bike, quantity int) error {
	query := `
		UPDATE bikes
		SET quantity = quantity - $2,
			in_stock = CASE WHEN quantity - $2 = 0 THEN FALSE ELSE in_stock END,
			updated_at = NOW()
		WHERE id = $1 AND quantity >= $2
		RETURNING quantity, in_stock, updated_at
	`

	err := t.tx.QueryRowContext(ctx, query, bike.ID, quantity).
		Scan(&bike.Quantity, &bike.InStock, &bike.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to debit bike %s: %w", bike.ID, ErrStockTooLow)
		}
		return fmt.Errorf("failed to update stock: %w", err)
	}

	return nil
}

func (t *pgPlacementTx) InsertOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (id, email, product, quantity, total_price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	err := t.tx.QueryRowContext(ctx, query,
		order.ID, order.Email, order.Product, order.Quantity, order.TotalPrice,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}
