package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/stitts-dev/playoff-sim/internal/models"
	"github.com/stitts-dev/playoff-sim/pkg/database"
	"github.com/stitts-dev/playoff-sim/pkg/utils"
)

type GameHandler struct {
	db *database.DB
}

func NewGameHandler(db *database.DB) *GameHandler {
	return &GameHandler{db: db}
}

// ListGames returns the schedule, optionally filtered by week, team, or
// completion state.
func (h *GameHandler) ListGames(c *gin.Context) {
	query := h.db.DB.Order("week, id")

	if weekStr := c.Query("week"); weekStr != "" {
		week, err := strconv.Atoi(weekStr)
		if err != nil {
			utils.SendValidationError(c, "Invalid week", err.Error())
			return
		}
		query = query.Where("week = ?", week)
	}
	if teamID := c.Query("team"); teamID != "" {
		query = query.Where("home_team_id = ? OR away_team_id = ?", teamID, teamID)
	}
	if completedStr := c.Query("completed"); completedStr != "" {
		completed, err := strconv.ParseBool(completedStr)
		if err != nil {
			utils.SendValidationError(c, "Invalid completed flag", err.Error())
			return
		}
		query = query.Where("completed = ?", completed)
	}

	var games []models.Game
	if err := query.Find(&games).Error; err != nil {
		utils.SendInternalError(c, "Failed to fetch games")
		return
	}
	utils.SendSuccess(c, games)
}

// GetGame returns one schedule entry by ID.
func (h *GameHandler) GetGame(c *gin.Context) {
	var game models.Game
	err := h.db.DB.First(&game, "id = ?", c.Param("id")).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.SendNotFound(c, "Game not found")
		} else {
			utils.SendInternalError(c, "Failed to fetch game")
		}
		return
	}
	utils.SendSuccess(c, game)
}
