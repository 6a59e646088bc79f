package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prudhivi99/bike-store/internal/models"
)

// OrderService is the order core as seen by the HTTP edge
type OrderService interface {
	PlaceOrder(ctx context.Context, req models.PlaceOrderRequest) (*models.Order, error)
	TotalRevenue(ctx context.Context) (float64, error)
}

type OrderHandler struct {
	service OrderService
}

func NewOrderHandler(service OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// CreateOrder places an order against a bike's stock
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if apiErr := bindJSON(c, &req, "Order Validation Error"); apiErr != nil {
		_ = c.Error(apiErr)
		return
	}

	placeReq, err := req.Normalize()
	if err != nil {
		_ = c.Error(validationError("Order Validation Error", []FieldError{{
			Field:   "product",
			Message: "Invalid Product ID format",
		}}))
		return
	}

	order, err := h.service.PlaceOrder(c.Request.Context(), placeReq)
	if err != nil {
		_ = c.Error(err)
		return
	}

	respondSuccess(c, http.StatusCreated, "Order created successfully", order)
}

// Revenue returns the sum of all order totals
func (h *OrderHandler) Revenue(c *gin.Context) {
	total, err := h.service.TotalRevenue(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	respondSuccess(c, http.StatusOK, "Revenue calculated successfully", models.Revenue{TotalRevenue: total})
}
