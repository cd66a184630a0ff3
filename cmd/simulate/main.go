package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/playoff-sim/internal/models"
	"github.com/stitts-dev/playoff-sim/internal/sim"
	"github.com/stitts-dev/playoff-sim/pkg/config"
	"github.com/stitts-dev/playoff-sim/pkg/database"
)

// simulate runs one simulation against the stored league and prints the
// playoff table, handy for eyeballing model changes without the server.
func main() {
	trials := flag.Int("trials", 0, "number of trials (0 uses the configured default)")
	seed := flag.Int64("seed", 0, "random seed (0 picks a time-based seed)")
	workers := flag.Int("workers", 0, "worker goroutines (0 uses the configured default)")
	useOdds := flag.Bool("market-odds", true, "override model probabilities with stored market odds")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	var teams []models.Team
	if err := db.DB.Order("conference, division, id").Find(&teams).Error; err != nil {
		logrus.Fatalf("Failed to load teams: %v", err)
	}
	var games []models.Game
	if err := db.DB.Order("week, id").Find(&games).Error; err != nil {
		logrus.Fatalf("Failed to load games: %v", err)
	}

	league, err := sim.NewLeague(models.SimTeams(teams), models.SimGames(games))
	if err != nil {
		logrus.Fatalf("Stored league data is not simulatable: %v", err)
	}

	simCfg := sim.SimConfig{
		Trials:         *trials,
		Workers:        *workers,
		Seed:           *seed,
		TieProbability: cfg.TieProbability,
		HomeField:      cfg.HomeFieldRating,
		RatingK:        cfg.RatingStepSize,
		SeedRatings:    models.SeedRatings(teams),
	}
	if simCfg.Trials == 0 {
		simCfg.Trials = cfg.DefaultTrials
	}
	if simCfg.Workers == 0 {
		simCfg.Workers = cfg.SimulationWorkers
	}
	if *useOdds {
		simCfg.MarketOdds = models.MarketOdds(games)
	}

	started := time.Now()
	result, err := sim.Run(context.Background(), simCfg, league)
	if err != nil {
		logrus.Fatalf("Simulation failed: %v", err)
	}

	outcomes := make([]sim.TeamOutcome, 0, len(result.Teams))
	for _, o := range result.Teams {
		outcomes = append(outcomes, o)
	}
	sort.Slice(outcomes, func(i, j int) bool {
		if outcomes[i].Playoffs != outcomes[j].Playoffs {
			return outcomes[i].Playoffs > outcomes[j].Playoffs
		}
		return outcomes[i].TeamID < outcomes[j].TeamID
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TEAM\tPLAYOFFS\tDIV TITLE\tWILDCARD\tTOP SEED")
	for _, o := range outcomes {
		fmt.Fprintf(w, "%s\t%.3f\t%.3f\t%.3f\t%.3f\n",
			o.TeamID, o.Playoffs, o.DivisionTitle, o.Wildcard, o.TopSeed)
	}
	w.Flush()

	fmt.Printf("\n%d trials in %s\n", result.Trials, time.Since(started).Round(time.Millisecond))
}
