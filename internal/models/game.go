package models

import (
	"time"

	"github.com/stitts-dev/playoff-sim/internal/sim"
)

// Game is one persisted schedule entry. Winner mirrors the simulator's
// convention: a team ID, sim.TieWinner, or empty while unplayed. HomeOdds is
// the market's home win probability when the prediction-market provider
// knows the game.
type Game struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	Week       int       `gorm:"not null;index" json:"week"`
	HomeTeamID string    `gorm:"not null;index" json:"home_team_id"`
	AwayTeamID string    `gorm:"not null;index" json:"away_team_id"`
	Completed  bool      `gorm:"default:false" json:"completed"`
	Winner     string    `json:"winner,omitempty"`
	HomeOdds   *float64  `json:"home_odds,omitempty"`
	KickoffAt  time.Time `json:"kickoff_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Game) TableName() string {
	return "games"
}

// ToSim converts the row into the simulator's schedule entry.
func (g Game) ToSim() sim.Game {
	return sim.Game{
		ID:        g.ID,
		Week:      g.Week,
		HomeID:    g.HomeTeamID,
		AwayID:    g.AwayTeamID,
		Completed: g.Completed,
		Winner:    g.Winner,
	}
}

// SimGames converts a result set, preserving order.
func SimGames(games []Game) []sim.Game {
	out := make([]sim.Game, len(games))
	for i, g := range games {
		out[i] = g.ToSim()
	}
	return out
}

// MarketOdds collects the known market probabilities for unplayed games.
func MarketOdds(games []Game) map[string]float64 {
	out := make(map[string]float64)
	for _, g := range games {
		if !g.Completed && g.HomeOdds != nil {
			out[g.ID] = *g.HomeOdds
		}
	}
	return out
}
