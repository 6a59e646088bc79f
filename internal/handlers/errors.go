package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prudhivi99/bike-store/internal/db"
	"github.com/prudhivi99/bike-store/internal/service"
)

// Error names rendered in the envelope
const (
	NameValidation        = "ValidationError"
	NameNotFound          = "NotFound"
	NameOutOfStock        = "OutOfStock"
	NameInsufficientStock = "InsufficientStock"
	NamePriceMismatch     = "PriceMismatch"
	NameConflict          = "Conflict"
	NameInternal          = "InternalServerError"
)

// APIError is an error that already knows how it should be rendered
type APIError struct {
	Status  int
	Name    string
	Message string
	Details any
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func validationError(message string, details any) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Name:    NameValidation,
		Message: message,
		Details: details,
	}
}

func notFoundError(message, details string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Name:    NameNotFound,
		Message: message,
		Details: details,
	}
}

var internalError = &APIError{
	Status:  http.StatusInternalServerError,
	Name:    NameInternal,
	Message: "Something went wrong",
	Details: "Internal Server Error",
}

// toAPIError maps domain and persistence errors onto the response taxonomy.
// Anything unrecognized becomes an opaque internal error.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, service.ErrBikeNotFound), errors.Is(err, db.ErrBikeNotFound):
		return notFoundError("Bike not found.", err.Error())
	case errors.Is(err, service.ErrOutOfStock):
		return &APIError{Status: http.StatusConflict, Name: NameOutOfStock, Message: "Bike is out of stock.", Details: err.Error()}
	case errors.Is(err, service.ErrInsufficientStock):
		return &APIError{Status: http.StatusConflict, Name: NameInsufficientStock, Message: "Insufficient stock to complete the order.", Details: err.Error()}
	case errors.Is(err, service.ErrPriceMismatch):
		return &APIError{Status: http.StatusBadRequest, Name: NamePriceMismatch, Message: "Total price does not match the bike price.", Details: err.Error()}
	case errors.Is(err, db.ErrBikeReferenced):
		return &APIError{Status: http.StatusConflict, Name: NameConflict, Message: "Bike has orders and cannot be deleted.", Details: err.Error()}
	}

	return internalError
}

// ErrorHandler renders the last error a handler attached with c.Error.
// Internal errors are logged and replaced with an opaque body.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		apiErr := toAPIError(err)
		if apiErr.Status >= http.StatusInternalServerError {
			log.Printf("❌ %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		}
		respondError(c, apiErr)
	}
}

// Recovery turns panics into the internal error envelope
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Printf("❌ panic on %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		respondError(c, internalError)
	})
}

// NotFound answers unknown routes
func NotFound(c *gin.Context) {
	respondError(c, notFoundError("API Not Found or Invalid URL.", c.Request.URL.Path))
}
