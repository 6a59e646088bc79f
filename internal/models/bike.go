package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryMountain Category = "Mountain"
	CategoryRoad     Category = "Road"
	CategoryHybrid   Category = "Hybrid"
	CategoryElectric Category = "Electric"
)

type Bike struct {
	ID          uuid.UUID `json:"_id"`
	Name        string    `json:"name"`
	Brand       string    `json:"brand"`
	Price       float64   `json:"price"`
	Category    Category  `json:"category"`
	Description string    `json:"description"`
	Quantity    int       `json:"quantity"`
	InStock     bool      `json:"inStock"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateBikeRequest requires every field. Pointers let zero values such as
// quantity 0 or inStock false pass the required check.
type CreateBikeRequest struct {
	Name        string   `json:"name" binding:"required,min=3,max=50"`
	Brand       string   `json:"brand" binding:"required,min=3,max=30"`
	Price       float64  `json:"price" binding:"required,gt=0"`
	Category    Category `json:"category" binding:"required,oneof=Mountain Road Hybrid Electric"`
	Description string   `json:"description" binding:"required,min=10,max=200"`
	Quantity    *int     `json:"quantity" binding:"required,min=0,max=1000"`
	InStock     *bool    `json:"inStock" binding:"required"`
}

// UpdateBikeRequest applies the creation rules to whichever fields are present.
type UpdateBikeRequest struct {
	Name        *string   `json:"name" binding:"omitempty,min=3,max=50"`
	Brand       *string   `json:"brand" binding:"omitempty,min=3,max=30"`
	Price       *float64  `json:"price" binding:"omitempty,gt=0"`
	Category    *Category `json:"category" binding:"omitempty,oneof=Mountain Road Hybrid Electric"`
	Description *string   `json:"description" binding:"omitempty,min=10,max=200"`
	Quantity    *int      `json:"quantity" binding:"omitempty,min=0,max=1000"`
	InStock     *bool     `json:"inStock"`
}

// IsEmpty reports whether the request carries no fields at all.
func (r UpdateBikeRequest) IsEmpty() bool {
	return r.Name == nil && r.Brand == nil && r.Price == nil && r.Category == nil &&
		r.Description == nil && r.Quantity == nil && r.InStock == nil
}

// Apply copies the present fields onto b.
func (r UpdateBikeRequest) Apply(b *Bike) {
	if r.Name != nil {
		b.Name = *r.Name
	}
	if r.Brand != nil {
		b.Brand = *r.Brand
	}
	if r.Price != nil {
		b.Price = *r.Price
	}
	if r.Category != nil {
		b.Category = *r.Category
	}
	if r.Description != nil {
		b.Description = *r.Description
	}
	if r.Quantity != nil {
		b.Quantity = *r.Quantity
	}
	if r.InStock != nil {
		b.InStock = *r.InStock
	}
}

// Trim strips surrounding whitespace from the free-text fields.
func (r *CreateBikeRequest) Trim() {
	r.Name = strings.TrimSpace(r.Name)
	r.Brand = strings.TrimSpace(r.Brand)
	r.Description = strings.TrimSpace(r.Description)
}

func (r *UpdateBikeRequest) Trim() {
	for _, s := range []*string{r.Name, r.Brand, r.Description} {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
}
