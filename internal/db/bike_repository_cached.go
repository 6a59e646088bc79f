package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/prudhivi99/bike-store/internal/cache"
	"github.com/prudhivi99/bike-store/internal/models"
)

// Cache is the subset of cache.RedisCache the cached repository needs
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// DefaultRedeleteDelay is how long after an invalidation the keys are dropped
// a second time. A miss-path read that loaded the row before the write
// committed may cache it after the first delete.
const DefaultRedeleteDelay = 500 * time.Millisecond

type CachedBikeRepository struct {
	repo          Bikes
	cache         Cache
	redeleteDelay time.Duration
}

type CachedOption func(*CachedBikeRepository)

// WithRedeleteDelay sets the second-invalidation delay; 0 disables it
func WithRedeleteDelay(d time.Duration) CachedOption {
	return func(r *CachedBikeRepository) { r.redeleteDelay = d }
}

func NewCachedBikeRepository(repo Bikes, cache Cache, opts ...CachedOption) *CachedBikeRepository {
	r := &CachedBikeRepository{
		repo:          repo,
		cache:         cache,
		redeleteDelay: DefaultRedeleteDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Cache key helpers
func bikeKey(id uuid.UUID) string {
	return fmt.Sprintf("bike:%s", id)
}

func bikeListKey(searchTerm string) string {
	return "bikes:list:" + searchTerm
}

const bikeListPattern = "bikes:list:*"

// GetAll returns bikes matching searchTerm (with caching)
func (r *CachedBikeRepository) GetAll(ctx context.Context, searchTerm string) ([]models.Bike, error) {
	cacheKey := bikeListKey(searchTerm)

	// Try cache first
	var bikes []models.Bike
	err := r.cache.Get(ctx, cacheKey, &bikes)
	if err == nil {
		log.Printf("📦 Cache HIT: bikes %q", searchTerm)
		return bikes, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		log.Printf("⚠️ Cache error: %v", err)
	}

	// Cache miss - get from store
	bikes, err = r.repo.GetAll(ctx, searchTerm)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, cacheKey, bikes); err != nil {
		log.Printf("⚠️ Failed to cache bikes: %v", err)
	}

	return bikes, nil
}

// GetByID returns a single bike (with caching)
func (r *CachedBikeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Bike, error) {
	cacheKey := bikeKey(id)

	var bike models.Bike
	err := r.cache.Get(ctx, cacheKey, &bike)
	if err == nil {
		log.Printf("📦 Cache HIT: bike %s", id)
		return &bike, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		log.Printf("⚠️ Cache error: %v", err)
	}

	b, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, cacheKey, b); err != nil {
		log.Printf("⚠️ Failed to cache bike: %v", err)
	}

	return b, nil
}

// Create inserts a new bike and drops cached listings
func (r *CachedBikeRepository) Create(ctx context.Context, req models.CreateBikeRequest) (*models.Bike, error) {
	bike, err := r.repo.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := r.cache.DeleteByPattern(ctx, bikeListPattern); err != nil {
		log.Printf("⚠️ Failed to invalidate cache: %v", err)
	}

	return bike, nil
}

func (r *CachedBikeRepository) Update(ctx context.Context, id uuid.UUID, req models.UpdateBikeRequest) (*models.Bike, error) {
	bike, err := r.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}

	r.Invalidate(ctx, id)
	return bike, nil
}

func (r *CachedBikeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.Invalidate(ctx, id)
	return nil
}

// Invalidate drops the cached bike and every cached listing, then drops them
// again after the redelete delay.
func (r *CachedBikeRepository) Invalidate(ctx context.Context, id uuid.UUID) {
	r.drop(ctx, id)
	log.Printf("🗑️ Cache invalidated: bike %s and listings", id)

	if r.redeleteDelay <= 0 {
		return
	}
	detached := context.WithoutCancel(ctx)
	time.AfterFunc(r.redeleteDelay, func() {
		ctx, cancel := context.WithTimeout(detached, 2*time.Second)
		defer cancel()
		r.drop(ctx, id)
	})
}

func (r *CachedBikeRepository) drop(ctx context.Context, id uuid.UUID) {
	if err := r.cache.Delete(ctx, bikeKey(id)); err != nil {
		log.Printf("⚠️ Failed to invalidate bike %s: %v", id, err)
	}
	if err := r.cache.DeleteByPattern(ctx, bikeListPattern); err != nil {
		log.Printf("⚠️ Failed to invalidate bike listings: %v", err)
	}
}
