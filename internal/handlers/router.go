package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	Bikes       *BikeHandler
	Orders      *OrderHandler
	Health      *HealthHandler
	CORSOrigins []string
	// RequestLog enables gin's per-request access log
	RequestLog bool
}

// NewRouter wires every route behind recovery, CORS and the error middleware
func NewRouter(cfg RouterConfig) *gin.Engine {
	useJSONFieldNames()

	router := gin.New()

	if cfg.RequestLog {
		router.Use(gin.Logger())
	}
	router.Use(Recovery())
	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	router.Use(ErrorHandler())

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Welcome to Bike Shop Server!")
	})
	if cfg.Health != nil {
		router.GET("/health", cfg.Health.HealthCheck)
	}

	api := router.Group("/api")
	api.GET("/v1", func(c *gin.Context) {
		c.String(http.StatusOK, "This is the root API route!")
	})

	products := api.Group("/products")
	products.POST("", cfg.Bikes.CreateBike)
	products.GET("", cfg.Bikes.ListBikes)
	products.GET("/:productId", cfg.Bikes.GetBike)
	products.PUT("/:productId", cfg.Bikes.UpdateBike)
	products.DELETE("/:productId", cfg.Bikes.DeleteBike)

	orders := api.Group("/orders")
	orders.POST("", cfg.Orders.CreateOrder)
	orders.GET("/revenue", cfg.Orders.Revenue)

	router.NoRoute(NotFound)

	return router
}
