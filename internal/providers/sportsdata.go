package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/playoff-sim/internal/models"
	"github.com/stitts-dev/playoff-sim/internal/sim"
)

// breakerSports names the circuit breaker guarding this provider; it must
// match the breaker registered by the services layer.
const breakerSports = "sports"

// SportsDataClient fetches standings and the season schedule from the
// sports-data provider.
type SportsDataClient struct {
	httpClient *http.Client
	baseURL    string
	cache      Cache
	breaker    Breaker
	logger     *logrus.Logger
}

func NewSportsDataClient(baseURL string, timeout time.Duration, cache Cache, breaker Breaker, logger *logrus.Logger) *SportsDataClient {
	return &SportsDataClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		cache:      cache,
		breaker:    breaker,
		logger:     logger,
	}
}

// Provider response structures
type sportsTeamsResponse struct {
	Season int `json:"season"`
	Teams  []struct {
		ID           string `json:"id"`
		Name         string `json:"displayName"`
		Abbreviation string `json:"abbreviation"`
		Conference   string `json:"conference"`
		Division     string `json:"division"`
		Record       struct {
			Overall    sportsRecord `json:"overall"`
			Division   sportsRecord `json:"division"`
			Conference sportsRecord `json:"conference"`
		} `json:"record"`
	} `json:"teams"`
}

type sportsRecord struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Ties   int `json:"ties"`
}

type sportsScheduleResponse struct {
	Season int `json:"season"`
	Events []struct {
		ID        string    `json:"id"`
		Week      int       `json:"week"`
		Date      time.Time `json:"date"`
		HomeTeam  string    `json:"homeTeam"`
		AwayTeam  string    `json:"awayTeam"`
		Status    string    `json:"status"` // "scheduled" or "final"
		HomeScore int       `json:"homeScore"`
		AwayScore int       `json:"awayScore"`
	} `json:"events"`
}

// GetTeams fetches current standings for a season.
func (c *SportsDataClient) GetTeams(ctx context.Context, season int) ([]models.Team, error) {
	cacheKey := fmt.Sprintf("sports:teams:%d", season)

	var cached []models.Team
	if err := c.cache.GetSimple(cacheKey, &cached); err == nil {
		return cached, nil
	}

	url := fmt.Sprintf("%s/teams?season=%d", c.baseURL, season)
	body, err := fetchJSON(ctx, c.httpClient, c.breaker, breakerSports, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch teams: %w", err)
	}

	var resp sportsTeamsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode teams response: %w", err)
	}

	teams := make([]models.Team, 0, len(resp.Teams))
	for _, t := range resp.Teams {
		if t.Conference == "" || t.Division == "" {
			c.logger.Warnf("Skipping team %s with no conference/division assignment", t.ID)
			continue
		}
		teams = append(teams, models.Team{
			ID:               t.ID,
			Name:             t.Name,
			Abbreviation:     t.Abbreviation,
			Conference:       t.Conference,
			Division:         t.Division,
			Wins:             t.Record.Overall.Wins,
			Losses:           t.Record.Overall.Losses,
			Ties:             t.Record.Overall.Ties,
			DivisionWins:     t.Record.Division.Wins,
			DivisionLosses:   t.Record.Division.Losses,
			DivisionTies:     t.Record.Division.Ties,
			ConferenceWins:   t.Record.Conference.Wins,
			ConferenceLosses: t.Record.Conference.Losses,
			ConferenceTies:   t.Record.Conference.Ties,
		})
	}

	if len(teams) > 0 {
		c.cache.SetSimple(cacheKey, teams, 15*time.Minute)
	}
	return teams, nil
}

// GetSchedule fetches the full season schedule, played and unplayed.
func (c *SportsDataClient) GetSchedule(ctx context.Context, season int) ([]models.Game, error) {
	cacheKey := fmt.Sprintf("sports:schedule:%d", season)

	var cached []models.Game
	if err := c.cache.GetSimple(cacheKey, &cached); err == nil {
		return cached, nil
	}

	url := fmt.Sprintf("%s/schedule?season=%d", c.baseURL, season)
	body, err := fetchJSON(ctx, c.httpClient, c.breaker, breakerSports, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule: %w", err)
	}

	var resp sportsScheduleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode schedule response: %w", err)
	}

	games := make([]models.Game, 0, len(resp.Events))
	for _, e := range resp.Events {
		g := models.Game{
			ID:         e.ID,
			Week:       e.Week,
			HomeTeamID: e.HomeTeam,
			AwayTeamID: e.AwayTeam,
			KickoffAt:  e.Date,
		}
		if e.Status == "final" {
			g.Completed = true
			switch {
			case e.HomeScore > e.AwayScore:
				g.Winner = e.HomeTeam
			case e.AwayScore > e.HomeScore:
				g.Winner = e.AwayTeam
			default:
				g.Winner = sim.TieWinner
			}
		}
		games = append(games, g)
	}

	if len(games) > 0 {
		c.cache.SetSimple(cacheKey, games, 15*time.Minute)
	}
	return games, nil
}
