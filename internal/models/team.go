package models

import (
	"time"

	"github.com/stitts-dev/playoff-sim/internal/sim"
)

// Team is the persisted league member, refreshed by the data fetcher from
// the sports-data provider and seeded with a market-implied rating.
type Team struct {
	ID           string `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"not null" json:"name"`
	Abbreviation string `gorm:"index" json:"abbreviation"`
	Conference   string `gorm:"not null;index" json:"conference"`
	Division     string `gorm:"not null;index" json:"division"`

	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Ties   int `json:"ties"`

	DivisionWins     int `json:"division_wins"`
	DivisionLosses   int `json:"division_losses"`
	DivisionTies     int `json:"division_ties"`
	ConferenceWins   int `json:"conference_wins"`
	ConferenceLosses int `json:"conference_losses"`
	ConferenceTies   int `json:"conference_ties"`

	// SeedRating is the market-implied skill estimate the simulator starts
	// each trial from.
	SeedRating float64 `json:"seed_rating"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Team) TableName() string {
	return "teams"
}

// ToSim converts the row into the simulator's static team view.
func (t Team) ToSim() sim.Team {
	return sim.Team{
		ID:           t.ID,
		Name:         t.Name,
		Abbreviation: t.Abbreviation,
		Conference:   t.Conference,
		Division:     t.Division,
		Overall:      sim.Record{Wins: t.Wins, Losses: t.Losses, Ties: t.Ties},
		InDivision:   sim.Record{Wins: t.DivisionWins, Losses: t.DivisionLosses, Ties: t.DivisionTies},
		InConference: sim.Record{Wins: t.ConferenceWins, Losses: t.ConferenceLosses, Ties: t.ConferenceTies},
	}
}

// SimTeams converts a result set, preserving order.
func SimTeams(teams []Team) []sim.Team {
	out := make([]sim.Team, len(teams))
	for i, t := range teams {
		out[i] = t.ToSim()
	}
	return out
}

// SeedRatings extracts the per-team rating map the simulator validates
// against.
func SeedRatings(teams []Team) map[string]float64 {
	out := make(map[string]float64, len(teams))
	for _, t := range teams {
		out[t.ID] = t.SeedRating
	}
	return out
}
