package api

import (
	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/playoff-sim/internal/api/handlers"
	"github.com/stitts-dev/playoff-sim/internal/services"
	"github.com/stitts-dev/playoff-sim/pkg/config"
	"github.com/stitts-dev/playoff-sim/pkg/database"
)

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, db *database.DB, cache *services.CacheService, hub *services.ProgressHub, breakers *services.CircuitBreakerService, dataFetcher *services.DataFetcherService, cfg *config.Config) {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, breakers, dataFetcher)
	teamHandler := handlers.NewTeamHandler(db, cache)
	gameHandler := handlers.NewGameHandler(db)
	simulationHandler := handlers.NewSimulationHandler(db, cache, hub, cfg)

	// Health endpoints
	group.GET("/health", healthHandler.GetHealth)
	group.GET("/ready", healthHandler.GetReady)
	group.GET("/status", healthHandler.GetStatus)

	// Team and standings endpoints
	group.GET("/teams", teamHandler.ListTeams)
	group.GET("/teams/:id", teamHandler.GetTeam)
	group.GET("/standings", teamHandler.GetStandings)

	// Schedule endpoints
	group.GET("/games", gameHandler.ListGames)
	group.GET("/games/:id", gameHandler.GetGame)

	// Simulation endpoints
	group.POST("/simulations", simulationHandler.RunSimulation)
	group.GET("/simulations", simulationHandler.ListSimulations)
	group.GET("/simulations/:id", simulationHandler.GetSimulation)
}
