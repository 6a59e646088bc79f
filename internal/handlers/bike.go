package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prudhivi99/bike-store/internal/models"
)

// BikeRepository is the bike persistence the handler needs
type BikeRepository interface {
	GetAll(ctx context.Context, searchTerm string) ([]models.Bike, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bike, error)
	Create(ctx context.Context, req models.CreateBikeRequest) (*models.Bike, error)
	Update(ctx context.Context, id uuid.UUID, req models.UpdateBikeRequest) (*models.Bike, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type BikeHandler struct {
	repo BikeRepository
}

func NewBikeHandler(repo BikeRepository) *BikeHandler {
	return &BikeHandler{repo: repo}
}

func bikeIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		_ = c.Error(validationError("Invalid Product ID format", []FieldError{{
			Field:   "productId",
			Message: "Invalid Product ID format",
		}}))
		return uuid.Nil, false
	}
	return id, true
}

// CreateBike stores a new bike
func (h *BikeHandler) CreateBike(c *gin.Context) {
	var req models.CreateBikeRequest
	if apiErr := bindJSON(c, &req, "Bike Validation Error"); apiErr != nil {
		_ = c.Error(apiErr)
		return
	}

	bike, err := h.repo.Create(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	respondSuccess(c, http.StatusCreated, "Bike created successfully.", bike)
}

// ListBikes returns every bike, optionally filtered by ?searchTerm=
func (h *BikeHandler) ListBikes(c *gin.Context) {
	bikes, err := h.repo.GetAll(c.Request.Context(), c.Query("searchTerm"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	if len(bikes) == 0 {
		_ = c.Error(notFoundError("Bikes not found.", "No bikes found."))
		return
	}

	respondSuccess(c, http.StatusOK, "Bikes retrieved successfully.", bikes)
}

// GetBike returns a single bike
func (h *BikeHandler) GetBike(c *gin.Context) {
	id, ok := bikeIDParam(c)
	if !ok {
		return
	}

	bike, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	respondSuccess(c, http.StatusOK, "Bike retrieved successfully.", bike)
}

// UpdateBike applies a partial update
func (h *BikeHandler) UpdateBike(c *gin.Context) {
	id, ok := bikeIDParam(c)
	if !ok {
		return
	}

	var req models.UpdateBikeRequest
	if apiErr := bindJSON(c, &req, "Bike Validation Error"); apiErr != nil {
		_ = c.Error(apiErr)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.repo.GetByID(ctx, id); err != nil {
		_ = c.Error(err)
		return
	}

	if req.IsEmpty() {
		_ = c.Error(validationError("No fields to update.", "No fields to update."))
		return
	}

	bike, err := h.repo.Update(ctx, id, req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	respondSuccess(c, http.StatusOK, "Bike updated successfully.", bike)
}

// DeleteBike removes a bike
func (h *BikeHandler) DeleteBike(c *gin.Context) {
	id, ok := bikeIDParam(c)
	if !ok {
		return
	}

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}

	respondSuccess(c, http.StatusOK, "Bike deleted successfully.", gin.H{})
}
