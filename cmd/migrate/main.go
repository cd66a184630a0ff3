package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/playoff-sim/internal/models"
	"github.com/stitts-dev/playoff-sim/internal/sim"
	"github.com/stitts-dev/playoff-sim/pkg/config"
	"github.com/stitts-dev/playoff-sim/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down|seed]")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	command := os.Args[1]

	switch command {
	case "up":
		if err := runMigrations(db); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		logrus.Info("Migrations completed successfully")

	case "down":
		if err := dropTables(db); err != nil {
			logrus.Fatalf("Failed to drop tables: %v", err)
		}
		logrus.Info("Tables dropped successfully")

	case "seed":
		if err := seedData(db); err != nil {
			logrus.Fatalf("Failed to seed data: %v", err)
		}
		logrus.Info("Data seeded successfully")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

func runMigrations(db *database.DB) error {
	if err := db.AutoMigrate(
		&models.Team{},
		&models.Game{},
		&models.SimulationRun{},
	); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_games_week_completed ON games(week, completed)",
		"CREATE INDEX IF NOT EXISTS idx_teams_conf_div ON teams(conference, division)",
		"CREATE INDEX IF NOT EXISTS idx_simulation_runs_created ON simulation_runs(created_at DESC)",
	}
	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

func dropTables(db *database.DB) error {
	tables := []string{
		"simulation_runs",
		"games",
		"teams",
	}
	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}

// seedData loads a small two-conference league, a few decided games and an
// unplayed slate, enough to exercise every endpoint locally.
func seedData(db *database.DB) error {
	teams := []models.Team{
		{ID: "NE", Name: "New England", Abbreviation: "NE", Conference: "AFC", Division: "East", SeedRating: 1540},
		{ID: "BUF", Name: "Buffalo", Abbreviation: "BUF", Conference: "AFC", Division: "East", SeedRating: 1585},
		{ID: "PIT", Name: "Pittsburgh", Abbreviation: "PIT", Conference: "AFC", Division: "North", SeedRating: 1520},
		{ID: "BAL", Name: "Baltimore", Abbreviation: "BAL", Conference: "AFC", Division: "North", SeedRating: 1600},
		{ID: "DAL", Name: "Dallas", Abbreviation: "DAL", Conference: "NFC", Division: "East", SeedRating: 1555},
		{ID: "PHI", Name: "Philadelphia", Abbreviation: "PHI", Conference: "NFC", Division: "East", SeedRating: 1590},
		{ID: "GB", Name: "Green Bay", Abbreviation: "GB", Conference: "NFC", Division: "North", SeedRating: 1565},
		{ID: "MIN", Name: "Minnesota", Abbreviation: "MIN", Conference: "NFC", Division: "North", SeedRating: 1510},
	}

	kickoff := time.Date(2025, time.September, 7, 17, 0, 0, 0, time.UTC)
	odds := func(p float64) *float64 { return &p }
	games := []models.Game{
		{ID: "w1-ne-buf", Week: 1, HomeTeamID: "NE", AwayTeamID: "BUF", Completed: true, Winner: "BUF", KickoffAt: kickoff},
		{ID: "w1-pit-bal", Week: 1, HomeTeamID: "PIT", AwayTeamID: "BAL", Completed: true, Winner: "BAL", KickoffAt: kickoff},
		{ID: "w1-dal-phi", Week: 1, HomeTeamID: "DAL", AwayTeamID: "PHI", Completed: true, Winner: sim.TieWinner, KickoffAt: kickoff},
		{ID: "w1-gb-min", Week: 1, HomeTeamID: "GB", AwayTeamID: "MIN", Completed: true, Winner: "GB", KickoffAt: kickoff},
		{ID: "w2-buf-ne", Week: 2, HomeTeamID: "BUF", AwayTeamID: "NE", HomeOdds: odds(0.64), KickoffAt: kickoff.AddDate(0, 0, 7)},
		{ID: "w2-bal-pit", Week: 2, HomeTeamID: "BAL", AwayTeamID: "PIT", HomeOdds: odds(0.70), KickoffAt: kickoff.AddDate(0, 0, 7)},
		{ID: "w2-phi-dal", Week: 2, HomeTeamID: "PHI", AwayTeamID: "DAL", HomeOdds: odds(0.58), KickoffAt: kickoff.AddDate(0, 0, 7)},
		{ID: "w2-min-gb", Week: 2, HomeTeamID: "MIN", AwayTeamID: "GB", KickoffAt: kickoff.AddDate(0, 0, 7)},
		{ID: "w3-ne-pit", Week: 3, HomeTeamID: "NE", AwayTeamID: "PIT", KickoffAt: kickoff.AddDate(0, 0, 14)},
		{ID: "w3-buf-bal", Week: 3, HomeTeamID: "BUF", AwayTeamID: "BAL", KickoffAt: kickoff.AddDate(0, 0, 14)},
		{ID: "w3-dal-gb", Week: 3, HomeTeamID: "DAL", AwayTeamID: "GB", KickoffAt: kickoff.AddDate(0, 0, 14)},
		{ID: "w3-phi-min", Week: 3, HomeTeamID: "PHI", AwayTeamID: "MIN", KickoffAt: kickoff.AddDate(0, 0, 14)},
	}

	// Keep the stored standings consistent with the decided games.
	apply := func(id string, w, l, t, dw, dl, dt, cw, cl, ct int) {
		for i := range teams {
			if teams[i].ID == id {
				teams[i].Wins, teams[i].Losses, teams[i].Ties = w, l, t
				teams[i].DivisionWins, teams[i].DivisionLosses, teams[i].DivisionTies = dw, dl, dt
				teams[i].ConferenceWins, teams[i].ConferenceLosses, teams[i].ConferenceTies = cw, cl, ct
			}
		}
	}
	apply("BUF", 1, 0, 0, 1, 0, 0, 1, 0, 0)
	apply("NE", 0, 1, 0, 0, 1, 0, 0, 1, 0)
	apply("BAL", 1, 0, 0, 1, 0, 0, 1, 0, 0)
	apply("PIT", 0, 1, 0, 0, 1, 0, 0, 1, 0)
	apply("DAL", 0, 0, 1, 0, 0, 1, 0, 0, 1)
	apply("PHI", 0, 0, 1, 0, 0, 1, 0, 0, 1)
	apply("GB", 1, 0, 0, 1, 0, 0, 1, 0, 0)
	apply("MIN", 0, 1, 0, 0, 1, 0, 0, 1, 0)

	if err := db.Create(&teams).Error; err != nil {
		return fmt.Errorf("failed to seed teams: %w", err)
	}
	if err := db.Create(&games).Error; err != nil {
		return fmt.Errorf("failed to seed games: %w", err)
	}

	return nil
}
