package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Check probes one dependency
type Check func(ctx context.Context) error

type HealthHandler struct {
	service string
	checks  map[string]Check
}

func NewHealthHandler(service string) *HealthHandler {
	return &HealthHandler{
		service: service,
		checks:  make(map[string]Check),
	}
}

// Register adds a dependency probe reported by HealthCheck
func (h *HealthHandler) Register(name string, check Check) {
	h.checks[name] = check
}

// HealthCheck returns server status. A failing dependency degrades the
// status but keeps the 200 so the instance stays registered.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	statuses := make(map[string]string, len(names))
	status := "healthy"
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			statuses[name] = "unhealthy"
			status = "degraded"
			continue
		}
		statuses[name] = "healthy"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       status,
		"service":      h.service,
		"dependencies": statuses,
	})
}
