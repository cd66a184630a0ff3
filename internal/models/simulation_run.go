package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// SimulationRun records one completed simulation request: its parameters,
// the aggregated per-team probabilities and the per-game simulated odds,
// both stored as JSON documents.
type SimulationRun struct {
	ID          string         `gorm:"primaryKey;type:uuid" json:"id"`
	Status      string         `gorm:"not null;index" json:"status"`
	Trials      int            `gorm:"not null" json:"trials"`
	Seed        int64          `json:"seed"`
	RequestHash string         `gorm:"index" json:"request_hash"`
	TeamResults datatypes.JSON `json:"team_results"`
	GameOdds    datatypes.JSON `json:"game_odds"`
	Error       string         `json:"error,omitempty"`
	DurationMs  int64          `json:"duration_ms"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (SimulationRun) TableName() string {
	return "simulation_runs"
}
