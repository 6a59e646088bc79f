package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/prudhivi99/bike-store/internal/models"
)

const bikeColumns = "id, name, brand, price, category, description, quantity, in_stock, created_at, updated_at"

// foreignKeyViolation is the Postgres SQLSTATE for a broken FK reference
const foreignKeyViolation = "23503"

type BikeRepository struct {
	db *sql.DB
}

func NewBikeRepository(database *PostgresDB) *BikeRepository {
	return &BikeRepository{db: database.Conn}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBike(row rowScanner) (*models.Bike, error) {
	var b models.Bike
	err := row.Scan(&b.ID, &b.Name, &b.Brand, &b.Price, &b.Category, &b.Description,
		&b.Quantity, &b.InStock, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetAll returns all bikes, optionally filtered by a case-insensitive search
// over name, brand and category
func (r *BikeRepository) GetAll(ctx context.Context, searchTerm string) ([]models.Bike, error) {
	query := "SELECT " + bikeColumns + " FROM bikes"
	var args []any
	if searchTerm != "" {
		query += " WHERE name ILIKE $1 OR brand ILIKE $1 OR category ILIKE $1"
		args = append(args, likePattern(searchTerm))
	}
	query += " ORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bikes: %w", err)
	}
	defer rows.Close()

	var bikes []models.Bike
	for rows.Next() {
		b, err := scanBike(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bike: %w", err)
		}
		bikes = append(bikes, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bikes: %w", err)
	}

	return bikes, nil
}

// GetByID returns a single bike or ErrBikeNotFound
func (r *BikeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Bike, error) {
	query := "SELECT " + bikeColumns + " FROM bikes WHERE id = $1"

	b, err := scanBike(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBikeNotFound
		}
		return nil, fmt.Errorf("failed to get bike: %w", err)
	}

	return b, nil
}

// Create inserts a new bike
func (r *BikeRepository) Create(ctx context.Context, req models.CreateBikeRequest) (*models.Bike, error) {
	query := `
		INSERT INTO bikes (id, name, brand, price, category, description, quantity, in_stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + bikeColumns

	b, err := scanBike(r.db.QueryRowContext(ctx, query,
		uuid.New(), req.Name, req.Brand, req.Price, req.Category, req.Description,
		*req.Quantity, *req.InStock,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create bike: %w", err)
	}

	return b, nil
}

// Update applies a partial update. The row is locked for the duration so an
// administrative edit cannot interleave with an order debit.
func (r *BikeRepository) Update(ctx context.Context, id uuid.UUID, req models.UpdateBikeRequest) (*models.Bike, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := scanBike(tx.QueryRowContext(ctx,
		"SELECT "+bikeColumns+" FROM bikes WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBikeNotFound
		}
		return nil, fmt.Errorf("failed to lock bike: %w", err)
	}

	req.Apply(current)

	query := `
		UPDATE bikes
		SET name = $2, brand = $3, price = $4, category = $5, description = $6,
			quantity = $7, in_stock = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + bikeColumns

	updated, err := scanBike(tx.QueryRowContext(ctx, query,
		id, current.Name, current.Brand, current.Price, current.Category, current.Description,
		current.Quantity, current.InStock,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to update bike: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return updated, nil
}

// Delete removes a bike. Bikes that orders still reference are kept.
func (r *BikeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM bikes WHERE id = $1", id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return ErrBikeReferenced
		}
		return fmt.Errorf("failed to delete bike: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrBikeNotFound
	}

	return nil
}
