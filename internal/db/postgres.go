package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
)

type PostgresDB struct {
	Conn *sql.DB
}

func NewPostgresDB(ctx context.Context, connStr string) (*PostgresDB, error) {
	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)

	// Test connection
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Connected to PostgreSQL")
	return &PostgresDB{Conn: conn}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS bikes (
	id          UUID PRIMARY KEY,
	name        VARCHAR(50) NOT NULL,
	brand       VARCHAR(30) NOT NULL,
	price       NUMERIC NOT NULL CHECK (price >= 0),
	category    VARCHAR(16) NOT NULL CHECK (category IN ('Mountain', 'Road', 'Hybrid', 'Electric')),
	description TEXT NOT NULL,
	quantity    INTEGER NOT NULL CHECK (quantity >= 0),
	in_stock    BOOLEAN NOT NULL DEFAULT TRUE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS orders (
	id          UUID PRIMARY KEY,
	email       VARCHAR(254) NOT NULL,
	product     UUID NOT NULL REFERENCES bikes (id),
	quantity    INTEGER NOT NULL CHECK (quantity >= 1),
	total_price NUMERIC NOT NULL CHECK (total_price >= 0),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS orders_product_idx ON orders (product);
`

// Migrate creates the bikes and orders tables if they do not exist yet
func (db *PostgresDB) Migrate(ctx context.Context) error {
	if _, err := db.Conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Println("✅ Schema ready")
	return nil
}

func (db *PostgresDB) Close() error {
	return db.Conn.Close()
}
