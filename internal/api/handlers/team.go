package handlers

import (
	"math/rand"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/stitts-dev/playoff-sim/internal/models"
	"github.com/stitts-dev/playoff-sim/internal/services"
	"github.com/stitts-dev/playoff-sim/internal/sim"
	"github.com/stitts-dev/playoff-sim/pkg/database"
	"github.com/stitts-dev/playoff-sim/pkg/utils"
)

type TeamHandler struct {
	db    *database.DB
	cache *services.CacheService
}

func NewTeamHandler(db *database.DB, cache *services.CacheService) *TeamHandler {
	return &TeamHandler{
		db:    db,
		cache: cache,
	}
}

// ListTeams returns every team, optionally filtered by conference or
// division.
func (h *TeamHandler) ListTeams(c *gin.Context) {
	query := h.db.DB.Order("conference, division, id")
	if conf := c.Query("conference"); conf != "" {
		query = query.Where("conference = ?", conf)
	}
	if div := c.Query("division"); div != "" {
		query = query.Where("division = ?", div)
	}

	var teams []models.Team
	if err := query.Find(&teams).Error; err != nil {
		utils.SendInternalError(c, "Failed to fetch teams")
		return
	}
	utils.SendSuccess(c, teams)
}

// GetTeam returns one team by ID.
func (h *TeamHandler) GetTeam(c *gin.Context) {
	var team models.Team
	err := h.db.DB.First(&team, "id = ?", c.Param("id")).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.SendNotFound(c, "Team not found")
		} else {
			utils.SendInternalError(c, "Failed to fetch team")
		}
		return
	}
	utils.SendSuccess(c, team)
}

// standingsRow is one line of the standings table: the team's records plus
// derived schedule strength and its tiebreak-resolved rank in the division.
type standingsRow struct {
	TeamID       string     `json:"team_id"`
	Name         string     `json:"name"`
	Conference   string     `json:"conference"`
	Division     string     `json:"division"`
	Overall      sim.Record `json:"overall"`
	InDivision   sim.Record `json:"in_division"`
	InConference sim.Record `json:"in_conference"`
	SOV          float64    `json:"strength_of_victory"`
	SOS          float64    `json:"strength_of_schedule"`
	DivisionRank int        `json:"division_rank"`
}

// GetStandings computes current standings from the stored results, ordered
// inside each division by the full tiebreaker procedure.
func (h *TeamHandler) GetStandings(c *gin.Context) {
	league, err := loadLeague(h.db)
	if err != nil {
		utils.SendInternalError(c, "Failed to load league: "+err.Error())
		return
	}

	stats := league.CurrentStats()

	// A fixed seed keeps the displayed order of coin-flip ties stable
	// between requests.
	tbCtx := &sim.TiebreakContext{
		Teams: league.Teams,
		Stats: stats,
		Rand:  rand.New(rand.NewSource(1)),
	}

	rows := make([]standingsRow, 0, len(league.Teams))
	for _, conf := range league.Conferences() {
		for _, divKey := range league.Divisions(conf) {
			pool := append([]int(nil), league.DivisionMembers(divKey)...)
			ordered := sim.ResolveTiebreak(tbCtx, pool, sim.TiebreakDivision)
			for rank, idx := range ordered {
				t := league.Teams[idx]
				s := stats[idx]
				rows = append(rows, standingsRow{
					TeamID:       t.ID,
					Name:         t.Name,
					Conference:   t.Conference,
					Division:     t.Division,
					Overall:      s.Overall,
					InDivision:   s.InDivision,
					InConference: s.InConference,
					SOV:          s.SOV,
					SOS:          s.SOS,
					DivisionRank: rank + 1,
				})
			}
		}
	}

	utils.SendSuccess(c, rows)
}

// loadLeague assembles the simulation league view from the stored teams and
// schedule.
func loadLeague(db *database.DB) (*sim.League, error) {
	var teams []models.Team
	if err := db.DB.Order("conference, division, id").Find(&teams).Error; err != nil {
		return nil, err
	}
	var games []models.Game
	if err := db.DB.Order("week, id").Find(&games).Error; err != nil {
		return nil, err
	}
	return sim.NewLeague(models.SimTeams(teams), models.SimGames(games))
}
