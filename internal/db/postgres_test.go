package db

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prudhivi99/bike-store/internal/models"
)

func newMockDB(t *testing.T) (*PostgresDB, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &PostgresDB{Conn: conn}, mock
}

var bikeColumnNames = []string{"id", "name", "brand", "price", "category", "description", "quantity", "in_stock", "created_at", "updated_at"}

func bikeRows(id uuid.UUID, price float64, quantity int, inStock bool) *sqlmock.Rows {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return sqlmock.NewRows(bikeColumnNames).
		AddRow(id.String(), "Summit Pro", "Ridgeline", price, "Mountain", "Full suspension trail bike", quantity, inStock, now, now)
}

func TestMigrate(t *testing.T) {
	database, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS bikes")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, database.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBikeRepository_GetByID(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewBikeRepository(database)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM bikes WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(bikeRows(id, 1200, 4, true))

	b, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, b.ID)
	assert.Equal(t, models.CategoryMountain, b.Category)
	assert.Equal(t, 1200.0, b.Price)
	assert.Equal(t, 4, b.Quantity)
	assert.True(t, b.InStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBikeRepository_GetByIDNotFound(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewBikeRepository(database)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM bikes WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(bikeColumnNames))

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrBikeNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBikeRepository_GetAllWithSearch(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewBikeRepository(database)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE name ILIKE $1 OR brand ILIKE $1 OR category ILIKE $1")).
		WithArgs("%ridge%").
		WillReturnRows(bikeRows(id, 999, 1, true))

	bikes, err := repo.GetAll(context.Background(), "ridge")
	require.NoError(t, err)
	require.Len(t, bikes, 1)
	assert.Equal(t, id, bikes[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBikeRepository_Create(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewBikeRepository(database)
	id := uuid.New()
	qty, inStock := 4, true

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bikes")).
		WithArgs(sqlmock.AnyArg(), "Summit Pro", "Ridgeline", 1200.0, "Mountain", "Full suspension trail bike", 4, true).
		WillReturnRows(bikeRows(id, 1200, 4, true))

	b, err := repo.Create(context.Background(), models.CreateBikeRequest{
		Name:        "Summit Pro",
		Brand:       "Ridgeline",
		Price:       1200,
		Category:    models.CategoryMountain,
		Description: "Full suspension trail bike",
		Quantity:    &qty,
		InStock:     &inStock,
	})
	require.NoError(t, err)
	assert.Equal(t, id, b.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBikeRepository_UpdateLocksRow(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewBikeRepository(database)
	id := uuid.New()
	qty := 9

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bikes WHERE id = $1 FOR UPDATE")).
		WithArgs(id).
		WillReturnRows(bikeRows(id, 1200, 0, false))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE bikes")).
		WithArgs(id, "Summit Pro", "Ridgeline", 1200.0, "Mountain", "Full suspension trail bike", 9, false).
		WillReturnRows(bikeRows(id, 1200, 9, false))
	mock.ExpectCommit()

	b, err := repo.Update(context.Background(), id, models.UpdateBikeRequest{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 9, b.Quantity)
	assert.False(t, b.InStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBikeRepository_UpdateMissing(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewBikeRepository(database)
	id := uuid.New()
	qty := 9

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(bikeColumnNames))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), id, models.UpdateBikeRequest{Quantity: &qty})
	assert.ErrorIs(t, err, ErrBikeNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBikeRepository_Delete(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock, id uuid.UUID)
		wantErr error
	}{
		{
			name: "deleted",
			setup: func(mock sqlmock.Sqlmock, id uuid.UUID) {
				mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bikes WHERE id = $1")).
					WithArgs(id).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "missing",
			setup: func(mock sqlmock.Sqlmock, id uuid.UUID) {
				mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bikes WHERE id = $1")).
					WithArgs(id).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: ErrBikeNotFound,
		},
		{
			name: "referenced by orders",
			setup: func(mock sqlmock.Sqlmock, id uuid.UUID) {
				mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bikes WHERE id = $1")).
					WithArgs(id).
					WillReturnError(&pq.Error{Code: foreignKeyViolation})
			},
			wantErr: ErrBikeReferenced,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			database, mock := newMockDB(t)
			id := uuid.New()
			tc.setup(mock, id)

			err := NewBikeRepository(database).Delete(context.Background(), id)
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestOrderRepository_PlacementCommits(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewOrderRepository(database)
	bikeID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bikes WHERE id = $1 FOR UPDATE")).
		WithArgs(bikeID).
		WillReturnRows(bikeRows(bikeID, 500, 2, true))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND quantity >= $2")).
		WithArgs(bikeID, 2).
		WillReturnRows(sqlmock.NewRows([]string{"quantity", "in_stock", "updated_at"}).AddRow(0, false, now))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs(sqlmock.AnyArg(), "rider@example.com", bikeID, 2, 1000.0).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectCommit()

	order := &models.Order{Email: "rider@example.com", Product: bikeID, Quantity: 2, TotalPrice: 1000}
	err := repo.WithPlacement(context.Background(), func(tx PlacementTx) error {
		b, err := tx.LockBike(context.Background(), bikeID)
		if err != nil {
			return err
		}
		if err := tx.DebitStock(context.Background(), b, 2); err != nil {
			return err
		}
		assert.Equal(t, 0, b.Quantity)
		assert.False(t, b.InStock)
		return tx.InsertOrder(context.Background(), order)
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, order.ID)
	assert.False(t, order.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_PlacementRollsBackOnError(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewOrderRepository(database)
	bikeID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(bikeID).
		WillReturnRows(bikeRows(bikeID, 500, 2, true))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE bikes")).
		WithArgs(bikeID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"quantity", "in_stock", "updated_at"}).AddRow(1, true, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.WithPlacement(context.Background(), func(tx PlacementTx) error {
		b, err := tx.LockBike(context.Background(), bikeID)
		if err != nil {
			return err
		}
		if err := tx.DebitStock(context.Background(), b, 1); err != nil {
			return err
		}
		return tx.InsertOrder(context.Background(), &models.Order{Email: "rider@example.com", Product: bikeID, Quantity: 1, TotalPrice: 500})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert order")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_DebitGuardRejectsOverdraw(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewOrderRepository(database)
	bikeID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(bikeID).
		WillReturnRows(bikeRows(bikeID, 500, 2, true))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND quantity >= $2")).
		WithArgs(bikeID, 3).
		WillReturnRows(sqlmock.NewRows([]string{"quantity", "in_stock", "updated_at"}))
	mock.ExpectRollback()

	err := repo.WithPlacement(context.Background(), func(tx PlacementTx) error {
		b, err := tx.LockBike(context.Background(), bikeID)
		if err != nil {
			return err
		}
		return tx.DebitStock(context.Background(), b, 3)
	})
	assert.ErrorIs(t, err, ErrStockTooLow)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_LockMissingBike(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewOrderRepository(database)
	bikeID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(bikeID).
		WillReturnRows(sqlmock.NewRows(bikeColumnNames))
	mock.ExpectRollback()

	err := repo.WithPlacement(context.Background(), func(tx PlacementTx) error {
		_, err := tx.LockBike(context.Background(), bikeID)
		return err
	})
	assert.ErrorIs(t, err, ErrBikeNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_SumTotals(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewOrderRepository(database)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(total_price), 0) FROM orders")).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(60.0))

	total, err := repo.SumTotals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 60.0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
