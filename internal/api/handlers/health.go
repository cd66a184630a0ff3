package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/playoff-sim/internal/services"
	"github.com/stitts-dev/playoff-sim/pkg/database"
)

type HealthHandler struct {
	db       *database.DB
	breakers *services.CircuitBreakerService
	fetcher  *services.DataFetcherService
}

func NewHealthHandler(db *database.DB, breakers *services.CircuitBreakerService, fetcher *services.DataFetcherService) *HealthHandler {
	return &HealthHandler{
		db:       db,
		breakers: breakers,
		fetcher:  fetcher,
	}
}

// GetHealth returns basic health status - always returns 200 if server is running
// This is used for basic liveness probes
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"service":   "playoff-sim",
	})
}

// GetReady reports whether the database answers, for readiness probes.
func (h *HealthHandler) GetReady(c *gin.Context) {
	sqlDB, err := h.db.DB.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// GetStatus returns detailed operational status: fetcher schedule and
// provider circuit-breaker states.
func (h *HealthHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"fetcher": h.fetcher.GetFetchStatus(),
		"breakers": gin.H{
			services.BreakerSports: h.breakers.GetState(services.BreakerSports).String(),
			services.BreakerMarket: h.breakers.GetState(services.BreakerMarket).String(),
		},
	})
}
