package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm/clause"

	"github.com/stitts-dev/playoff-sim/internal/models"
	"github.com/stitts-dev/playoff-sim/internal/providers"
	"github.com/stitts-dev/playoff-sim/pkg/database"
)

// DataFetcherService keeps the persisted league state current: standings and
// schedule from the sports-data provider, win probabilities and seed ratings
// from the prediction-market provider.
type DataFetcherService struct {
	db            *database.DB
	cache         *CacheService
	sports        *providers.SportsDataClient
	market        *providers.MarketClient
	calibration   *CalibrationService
	logger        *logrus.Logger
	cron          *cron.Cron
	fetchInterval time.Duration
	retentionDays int

	mu        sync.Mutex
	isRunning bool
}

func NewDataFetcherService(
	db *database.DB,
	cache *CacheService,
	sports *providers.SportsDataClient,
	market *providers.MarketClient,
	calibration *CalibrationService,
	logger *logrus.Logger,
	fetchInterval time.Duration,
	retentionDays int,
) *DataFetcherService {
	return &DataFetcherService{
		db:            db,
		cache:         cache,
		sports:        sports,
		market:        market,
		calibration:   calibration,
		logger:        logger,
		cron:          cron.New(),
		fetchInterval: fetchInterval,
		retentionDays: retentionDays,
	}
}

// Start schedules the recurring refresh and the daily run cleanup. An
// initial refresh runs immediately in the background unless skipInitial is
// set.
func (s *DataFetcherService) Start(skipInitial bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("data fetcher is already running")
	}

	schedule := fmt.Sprintf("@every %s", s.fetchInterval.String())
	if _, err := s.cron.AddFunc(schedule, s.refreshAll); err != nil {
		return fmt.Errorf("failed to schedule data fetcher: %w", err)
	}

	if _, err := s.cron.AddFunc("0 3 * * *", s.cleanupOldRuns); err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}

	s.cron.Start()
	s.isRunning = true

	if !skipInitial {
		go s.refreshAll()
	}

	s.logger.Info("Data fetcher service started")
	return nil
}

// Stop halts the scheduled jobs and waits for any in-flight run.
func (s *DataFetcherService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.logger.Info("Data fetcher service stopped")
}

// refreshAll pulls every feed for the current season. Each feed fails
// independently; a dead market provider must not block standings updates.
func (s *DataFetcherService) refreshAll() {
	season := CurrentSeason(time.Now())
	s.logger.Infof("Starting scheduled data refresh for season %d", season)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.RefreshStandings(ctx, season); err != nil {
		s.logger.Errorf("Failed to refresh standings: %v", err)
	}
	if err := s.RefreshSchedule(ctx, season); err != nil {
		s.logger.Errorf("Failed to refresh schedule: %v", err)
	}
	if err := s.RefreshSeedRatings(ctx, season); err != nil {
		s.logger.Errorf("Failed to refresh seed ratings: %v", err)
	}
	if err := s.RefreshMarketOdds(ctx, season); err != nil {
		s.logger.Errorf("Failed to refresh market odds: %v", err)
	}
	if err := s.CalibrateSeedRatings(ctx); err != nil {
		s.logger.Errorf("Failed to calibrate seed ratings: %v", err)
	}

	s.logger.Info("Completed scheduled data refresh")
}

// RefreshStandings upserts team rows from the sports-data provider.
func (s *DataFetcherService) RefreshStandings(ctx context.Context, season int) error {
	teams, err := s.sports.GetTeams(ctx, season)
	if err != nil {
		return fmt.Errorf("fetch teams: %w", err)
	}
	if len(teams) == 0 {
		s.logger.Warn("Sports provider returned no teams, keeping existing standings")
		return nil
	}

	// Seed ratings are owned by the calibration pipeline, not the standings
	// feed, so the upsert must not zero them.
	err = s.db.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "abbreviation", "conference", "division",
			"wins", "losses", "ties",
			"division_wins", "division_losses", "division_ties",
			"conference_wins", "conference_losses", "conference_ties",
			"updated_at",
		}),
	}).Create(&teams).Error
	if err != nil {
		return fmt.Errorf("upsert teams: %w", err)
	}

	s.logger.Infof("Refreshed standings for %d teams", len(teams))
	return nil
}

// RefreshSchedule upserts the full season schedule, including results for
// games that have gone final since the last refresh.
func (s *DataFetcherService) RefreshSchedule(ctx context.Context, season int) error {
	games, err := s.sports.GetSchedule(ctx, season)
	if err != nil {
		return fmt.Errorf("fetch schedule: %w", err)
	}
	if len(games) == 0 {
		s.logger.Warn("Sports provider returned no games, keeping existing schedule")
		return nil
	}

	err = s.db.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"week", "home_team_id", "away_team_id",
			"completed", "winner", "kickoff_at", "updated_at",
		}),
	}).Create(&games).Error
	if err != nil {
		return fmt.Errorf("upsert games: %w", err)
	}

	s.logger.Infof("Refreshed schedule with %d games", len(games))
	return nil
}

// RefreshSeedRatings overwrites each team's market-implied rating.
func (s *DataFetcherService) RefreshSeedRatings(ctx context.Context, season int) error {
	ratings, err := s.market.GetTeamRatings(ctx, season)
	if err != nil {
		return fmt.Errorf("fetch team ratings: %w", err)
	}

	updated := 0
	for teamID, rating := range ratings {
		result := s.db.DB.WithContext(ctx).
			Model(&models.Team{}).
			Where("id = ?", teamID).
			Update("seed_rating", rating)
		if result.Error != nil {
			return fmt.Errorf("update rating for %s: %w", teamID, result.Error)
		}
		if result.RowsAffected == 0 {
			s.logger.Warnf("Market rating for unknown team %s ignored", teamID)
			continue
		}
		updated++
	}

	s.logger.Infof("Refreshed seed ratings for %d teams", updated)
	return nil
}

// RefreshMarketOdds attaches market win probabilities to the unplayed games
// of upcoming weeks.
func (s *DataFetcherService) RefreshMarketOdds(ctx context.Context, season int) error {
	var weeks []int
	err := s.db.DB.WithContext(ctx).
		Model(&models.Game{}).
		Where("completed = ?", false).
		Distinct().
		Order("week").
		Pluck("week", &weeks).Error
	if err != nil {
		return fmt.Errorf("list unplayed weeks: %w", err)
	}

	updated := 0
	for _, week := range weeks {
		odds, err := s.market.GetGameOdds(ctx, season, week)
		if err != nil {
			s.logger.Warnf("Failed to fetch market odds for week %d: %v", week, err)
			continue
		}
		for gameID, prob := range odds {
			result := s.db.DB.WithContext(ctx).
				Model(&models.Game{}).
				Where("id = ? AND completed = ?", gameID, false).
				Update("home_odds", prob)
			if result.Error != nil {
				return fmt.Errorf("update odds for game %s: %w", gameID, result.Error)
			}
			updated += int(result.RowsAffected)
		}
	}

	s.logger.Infof("Refreshed market odds for %d games", updated)
	return nil
}

// CalibrateSeedRatings realigns stored ratings with the latest market
// prices for unplayed games and persists any that moved.
func (s *DataFetcherService) CalibrateSeedRatings(ctx context.Context) error {
	var teams []models.Team
	if err := s.db.DB.WithContext(ctx).Find(&teams).Error; err != nil {
		return fmt.Errorf("load teams: %w", err)
	}

	var priced []models.Game
	err := s.db.DB.WithContext(ctx).
		Where("completed = ? AND home_odds IS NOT NULL", false).
		Find(&priced).Error
	if err != nil {
		return fmt.Errorf("load priced games: %w", err)
	}
	if len(priced) == 0 {
		return nil
	}

	targets := make([]RatedGame, 0, len(priced))
	for _, g := range priced {
		targets = append(targets, RatedGame{
			HomeID:     g.HomeTeamID,
			AwayID:     g.AwayTeamID,
			MarketProb: *g.HomeOdds,
		})
	}

	before := models.SeedRatings(teams)
	adjusted, _ := s.calibration.Calibrate(before, targets)

	updated := 0
	for id, rating := range adjusted {
		if rating == before[id] {
			continue
		}
		result := s.db.DB.WithContext(ctx).
			Model(&models.Team{}).
			Where("id = ?", id).
			Update("seed_rating", rating)
		if result.Error != nil {
			return fmt.Errorf("persist rating for %s: %w", id, result.Error)
		}
		updated++
	}

	s.logger.Infof("Calibrated and persisted %d seed ratings", updated)
	return nil
}

// cleanupOldRuns deletes simulation runs past the retention window and
// drops their cached results.
func (s *DataFetcherService) cleanupOldRuns() {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)

	var stale []models.SimulationRun
	if err := s.db.DB.Where("created_at < ?", cutoff).Find(&stale).Error; err != nil {
		s.logger.Errorf("Failed to list stale simulation runs: %v", err)
		return
	}

	ctx := context.Background()
	for _, run := range stale {
		if run.RequestHash != "" {
			s.cache.Delete(ctx, SimulationCacheKey(run.RequestHash))
		}
	}

	result := s.db.DB.Where("created_at < ?", cutoff).Delete(&models.SimulationRun{})
	if result.Error != nil {
		s.logger.Errorf("Failed to cleanup old simulation runs: %v", result.Error)
		return
	}
	s.logger.Infof("Cleaned up %d simulation runs older than %d days", result.RowsAffected, s.retentionDays)
}

// GetFetchStatus reports scheduler state for the health endpoint.
func (s *DataFetcherService) GetFetchStatus() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	nextRuns := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		nextRuns = append(nextRuns, entry.Next)
	}

	return map[string]interface{}{
		"is_running":     s.isRunning,
		"fetch_interval": s.fetchInterval.String(),
		"next_runs":      nextRuns,
		"cron_jobs":      len(entries),
	}
}

// CurrentSeason maps a calendar date to the season it belongs to. Seasons
// run into the following January and February, which still count toward the
// prior year.
func CurrentSeason(now time.Time) int {
	if now.Month() < time.March {
		return now.Year() - 1
	}
	return now.Year()
}
