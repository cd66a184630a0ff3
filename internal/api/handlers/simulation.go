package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stitts-dev/playoff-sim/internal/models"
	"github.com/stitts-dev/playoff-sim/internal/services"
	"github.com/stitts-dev/playoff-sim/internal/sim"
	"github.com/stitts-dev/playoff-sim/pkg/config"
	"github.com/stitts-dev/playoff-sim/pkg/database"
	"github.com/stitts-dev/playoff-sim/pkg/utils"
)

type SimulationHandler struct {
	db    *database.DB
	cache *services.CacheService
	hub   *services.ProgressHub
	cfg   *config.Config
}

func NewSimulationHandler(db *database.DB, cache *services.CacheService, hub *services.ProgressHub, cfg *config.Config) *SimulationHandler {
	return &SimulationHandler{
		db:    db,
		cache: cache,
		hub:   hub,
		cfg:   cfg,
	}
}

// simulationRequest is the POST /simulations body. Zero-valued model knobs
// fall back to the configured defaults.
type simulationRequest struct {
	Trials         int               `json:"trials"`
	Seed           int64             `json:"seed"`
	Workers        int               `json:"workers"`
	TieProbability float64           `json:"tie_probability"`
	HomeField      float64           `json:"home_field"`
	RatingK        float64           `json:"rating_k"`
	UseMarketOdds  bool              `json:"use_market_odds"`
	ForcedOutcomes map[string]string `json:"forced_outcomes"`
}

// RunSimulation simulates the rest of the season and returns per-team
// playoff probabilities. Identical requests against unchanged data are
// served from cache.
func (h *SimulationHandler) RunSimulation(c *gin.Context) {
	var req simulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	if req.Trials == 0 {
		req.Trials = h.cfg.DefaultTrials
	}
	if req.Trials < 1 || req.Trials > h.cfg.MaxTrials {
		utils.SendValidationError(c, "Invalid trial count", fmt.Sprintf("trials must be between 1 and %d", h.cfg.MaxTrials))
		return
	}
	if req.Workers == 0 {
		req.Workers = h.cfg.SimulationWorkers
	}

	var teams []models.Team
	if err := h.db.DB.Order("conference, division, id").Find(&teams).Error; err != nil {
		utils.SendInternalError(c, "Failed to fetch teams")
		return
	}
	var games []models.Game
	if err := h.db.DB.Order("week, id").Find(&games).Error; err != nil {
		utils.SendInternalError(c, "Failed to fetch games")
		return
	}

	league, err := sim.NewLeague(models.SimTeams(teams), models.SimGames(games))
	if err != nil {
		utils.SendValidationError(c, "Stored league data is not simulatable", err.Error())
		return
	}

	hash := requestHash(req, teams, games)
	ctx := context.Background()
	cacheKey := services.SimulationCacheKey(hash)

	// Seeded runs are deterministic, so the cache can answer them outright.
	if req.Seed != 0 {
		var cached models.SimulationRun
		if err := h.cache.Get(ctx, cacheKey, &cached); err == nil {
			utils.SendSuccess(c, cached)
			return
		}
	}

	simCfg := sim.SimConfig{
		Trials:         req.Trials,
		Workers:        req.Workers,
		Seed:           req.Seed,
		TieProbability: req.TieProbability,
		HomeField:      req.HomeField,
		RatingK:        req.RatingK,
		ForcedOutcomes: req.ForcedOutcomes,
		SeedRatings:    models.SeedRatings(teams),
	}
	if req.TieProbability == 0 {
		simCfg.TieProbability = h.cfg.TieProbability
	}
	if req.HomeField == 0 {
		simCfg.HomeField = h.cfg.HomeFieldRating
	}
	if req.RatingK == 0 {
		simCfg.RatingK = h.cfg.RatingStepSize
	}
	if req.UseMarketOdds {
		simCfg.MarketOdds = models.MarketOdds(games)
	}

	run := models.SimulationRun{
		ID:          uuid.New().String(),
		Status:      models.RunStatusRunning,
		Trials:      req.Trials,
		Seed:        req.Seed,
		RequestHash: hash,
	}
	if err := h.db.DB.Create(&run).Error; err != nil {
		utils.SendInternalError(c, "Failed to record simulation run")
		return
	}

	simCfg.Progress = func(completed, total int) {
		h.hub.Broadcast(services.ProgressUpdate{
			Type:      "progress",
			RunID:     run.ID,
			Completed: completed,
			Total:     total,
		})
	}

	started := time.Now()
	result, err := sim.Run(c.Request.Context(), simCfg, league)
	if err != nil {
		h.failRun(&run, err)
		if errors.Is(err, context.Canceled) {
			c.Abort()
			return
		}
		utils.SendValidationError(c, "Simulation rejected", err.Error())
		return
	}

	teamJSON, _ := json.Marshal(result.Teams)
	oddsJSON, _ := json.Marshal(result.GameOdds)
	now := time.Now()
	run.Status = models.RunStatusCompleted
	run.TeamResults = teamJSON
	run.GameOdds = oddsJSON
	run.DurationMs = time.Since(started).Milliseconds()
	run.CompletedAt = &now
	if err := h.db.DB.Save(&run).Error; err != nil {
		utils.SendInternalError(c, "Failed to persist simulation results")
		return
	}

	if req.Seed != 0 {
		h.cache.SetWithRetry(ctx, cacheKey, run, 30*time.Minute, 3)
	}

	h.hub.Broadcast(services.ProgressUpdate{
		Type:      "completed",
		RunID:     run.ID,
		Completed: result.Trials,
		Total:     result.Trials,
	})

	utils.SendSuccess(c, run)
}

// GetSimulation returns the stored result of one run.
func (h *SimulationHandler) GetSimulation(c *gin.Context) {
	var run models.SimulationRun
	err := h.db.DB.First(&run, "id = ?", c.Param("id")).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.SendNotFound(c, "Simulation run not found")
		} else {
			utils.SendInternalError(c, "Failed to fetch simulation run")
		}
		return
	}
	utils.SendSuccess(c, run)
}

// ListSimulations returns recent runs, newest first.
func (h *SimulationHandler) ListSimulations(c *gin.Context) {
	var runs []models.SimulationRun
	err := h.db.DB.Order("created_at DESC").Limit(50).Find(&runs).Error
	if err != nil {
		utils.SendInternalError(c, "Failed to fetch simulation runs")
		return
	}
	utils.SendSuccess(c, runs)
}

func (h *SimulationHandler) failRun(run *models.SimulationRun, cause error) {
	run.Status = models.RunStatusFailed
	run.Error = cause.Error()
	// Best effort; the response already carries the original failure.
	h.db.DB.Save(run)
}

// requestHash fingerprints a request together with the data it would run
// against, so cached results go stale the moment a game result lands.
func requestHash(req simulationRequest, teams []models.Team, games []models.Game) string {
	hasher := sha256.New()
	enc := json.NewEncoder(hasher)
	enc.Encode(req)

	var version time.Time
	for _, t := range teams {
		if t.UpdatedAt.After(version) {
			version = t.UpdatedAt
		}
	}
	for _, g := range games {
		if g.UpdatedAt.After(version) {
			version = g.UpdatedAt
		}
	}
	fmt.Fprintf(hasher, "%d:%d:%d", len(teams), len(games), version.UnixNano())

	return hex.EncodeToString(hasher.Sum(nil))
}
