package db

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prudhivi99/bike-store/internal/models"
)

// MemoryStore keeps bikes and orders in process memory. A single mutex guards
// everything, and a placement holds it from LockBike until commit, so
// placements are fully serialized.
type MemoryStore struct {
	mu     sync.Mutex
	bikes  map[uuid.UUID]models.Bike
	ids    []uuid.UUID // insertion order
	orders []models.Order
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bikes: make(map[uuid.UUID]models.Bike),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) GetAll(ctx context.Context, searchTerm string) ([]models.Bike, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	term := strings.ToLower(searchTerm)
	bikes := make([]models.Bike, 0, len(s.ids))
	for _, id := range s.ids {
		b := s.bikes[id]
		if term != "" &&
			!strings.Contains(strings.ToLower(b.Name), term) &&
			!strings.Contains(strings.ToLower(b.Brand), term) &&
			!strings.Contains(strings.ToLower(string(b.Category)), term) {
			continue
		}
		bikes = append(bikes, b)
	}

	return bikes, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Bike, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bikes[id]
	if !ok {
		return nil, ErrBikeNotFound
	}
	return &b, nil
}

func (s *MemoryStore) Create(ctx context.Context, req models.CreateBikeRequest) (*models.Bike, error) {
	if req.Quantity == nil || req.InStock == nil {
		return nil, fmt.Errorf("failed to create bike: quantity and inStock are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	b := models.Bike{
		ID:          uuid.New(),
		Name:        req.Name,
		Brand:       req.Brand,
		Price:       req.Price,
		Category:    req.Category,
		Description: req.Description,
		Quantity:    *req.Quantity,
		InStock:     *req.InStock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.bikes[b.ID] = b
	s.ids = append(s.ids, b.ID)

	return &b, nil
}

func (s *MemoryStore) Update(ctx context.Context, id uuid.UUID, req models.UpdateBikeRequest) (*models.Bike, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bikes[id]
	if !ok {
		return nil, ErrBikeNotFound
	}

	req.Apply(&b)
	if b.Quantity < 0 {
		return nil, fmt.Errorf("failed to update bike: quantity %d is negative", b.Quantity)
	}
	b.UpdatedAt = s.now()
	s.bikes[id] = b

	return &b, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bikes[id]; !ok {
		return ErrBikeNotFound
	}
	for _, o := range s.orders {
		if o.Product == id {
			return ErrBikeReferenced
		}
	}

	delete(s.bikes, id)
	for i, existing := range s.ids {
		if existing == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}

	return nil
}

// WithPlacement stages writes and applies them only when fn succeeds.
func (s *MemoryStore) WithPlacement(ctx context.Context, fn func(tx PlacementTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memPlacementTx{store: s, bikes: make(map[uuid.UUID]models.Bike)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to commit placement: %w", err)
	}

	for id, b := range tx.bikes {
		s.bikes[id] = b
	}
	s.orders = append(s.orders, tx.orders...)

	return nil
}

func (s *MemoryStore) SumTotals(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// summed in decimal to match Postgres NUMERIC
	total := decimal.Zero
	for _, o := range s.orders {
		total = total.Add(decimal.NewFromFloat(o.TotalPrice))
	}
	return total.InexactFloat64(), nil
}

// Orders returns a copy of every committed order
func (s *MemoryStore) Orders() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]models.Order(nil), s.orders...)
}

// memPlacementTx runs with store.mu already held by WithPlacement.
type memPlacementTx struct {
	store  *MemoryStore
	bikes  map[uuid.UUID]models.Bike
	orders []models.Order
}

func (t *memPlacementTx) LockBike(ctx context.Context, id uuid.UUID) (*models.Bike, error) {
	if b, ok := t.bikes[id]; ok {
		return &b, nil
	}
	b, ok := t.store.bikes[id]
	if !ok {
		return nil, ErrBikeNotFound
	}
	return &b, nil
}

func (t *memPlacementTx) DebitStock(ctx context.Context, bike *models.Bike, quantity int) error {
	current, ok := t.bikes[bike.ID]
	if !ok {
		current, ok = t.store.bikes[bike.ID]
	}
	if !ok {
		return fmt.Errorf("failed to debit bike %s: %w", bike.ID, ErrBikeNotFound)
	}
	if quantity < 0 || current.Quantity < quantity {
		return fmt.Errorf("failed to debit bike %s: %w", bike.ID, ErrStockTooLow)
	}

	current.Quantity -= quantity
	if current.Quantity == 0 {
		current.InStock = false
	}
	current.UpdatedAt = t.store.now()
	t.bikes[bike.ID] = current

	bike.Quantity = current.Quantity
	bike.InStock = current.InStock
	bike.UpdatedAt = current.UpdatedAt

	return nil
}

func (t *memPlacementTx) InsertOrder(ctx context.Context, order *models.Order) error {
	if _, ok := t.store.bikes[order.Product]; !ok {
		return fmt.Errorf("failed to insert order: %w", ErrBikeNotFound)
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	now := t.store.now()
	order.CreatedAt = now
	order.UpdatedAt = now
	t.orders = append(t.orders, *order)

	return nil
}
