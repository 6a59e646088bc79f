package handlers

import (
	"github.com/gin-gonic/gin"
)

// SuccessResponse is the envelope for every successful reply
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ErrorResponse is the envelope for every failed reply
type ErrorResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Error   ErrorBody `json:"error"`
}

type ErrorBody struct {
	Name    string `json:"name"`
	Details any    `json:"details,omitempty"`
}

func respondSuccess(c *gin.Context, status int, message string, data any) {
	c.JSON(status, SuccessResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func respondError(c *gin.Context, apiErr *APIError) {
	c.AbortWithStatusJSON(apiErr.Status, ErrorResponse{
		Success: false,
		Message: apiErr.Message,
		Error: ErrorBody{
			Name:    apiErr.Name,
			Details: apiErr.Details,
		},
	})
}
