package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// breakerMarket names the circuit breaker guarding this provider.
const breakerMarket = "market"

// MarketClient fetches market-implied win probabilities per game and
// market-implied skill ratings per team from the prediction-market provider.
type MarketClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cache      Cache
	breaker    Breaker
	logger     *logrus.Logger
}

func NewMarketClient(baseURL, apiKey string, timeout time.Duration, cache Cache, breaker Breaker, logger *logrus.Logger) *MarketClient {
	return &MarketClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		cache:      cache,
		breaker:    breaker,
		logger:     logger,
	}
}

type marketOddsResponse struct {
	Season  int `json:"season"`
	Markets []struct {
		GameID      string  `json:"gameId"`
		HomeWinProb float64 `json:"homeWinProbability"`
	} `json:"markets"`
}

type marketRatingsResponse struct {
	Season  int `json:"season"`
	Ratings []struct {
		TeamID string  `json:"teamId"`
		Rating float64 `json:"rating"`
	} `json:"ratings"`
}

func (c *MarketClient) headers() map[string]string {
	if c.apiKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

// GetGameOdds returns home win probabilities by game ID for one week.
// Probabilities outside (0,1) are dropped with a warning; the simulator's
// rating model covers the gap.
func (c *MarketClient) GetGameOdds(ctx context.Context, season, week int) (map[string]float64, error) {
	cacheKey := fmt.Sprintf("market:odds:%d:%d", season, week)

	var cached map[string]float64
	if err := c.cache.GetSimple(cacheKey, &cached); err == nil {
		return cached, nil
	}

	url := fmt.Sprintf("%s/odds?season=%d&week=%d", c.baseURL, season, week)
	body, err := fetchJSON(ctx, c.httpClient, c.breaker, breakerMarket, url, c.headers())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market odds: %w", err)
	}

	var resp marketOddsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode market odds: %w", err)
	}

	odds := make(map[string]float64, len(resp.Markets))
	for _, m := range resp.Markets {
		if m.HomeWinProb <= 0 || m.HomeWinProb >= 1 {
			c.logger.Warnf("Dropping out-of-range market probability %f for game %s", m.HomeWinProb, m.GameID)
			continue
		}
		odds[m.GameID] = m.HomeWinProb
	}

	if len(odds) > 0 {
		c.cache.SetSimple(cacheKey, odds, 10*time.Minute)
	}
	return odds, nil
}

// GetTeamRatings returns market-implied seed ratings by team ID.
func (c *MarketClient) GetTeamRatings(ctx context.Context, season int) (map[string]float64, error) {
	url := fmt.Sprintf("%s/ratings?season=%d", c.baseURL, season)
	body, err := fetchJSON(ctx, c.httpClient, c.breaker, breakerMarket, url, c.headers())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch team ratings: %w", err)
	}

	var resp marketRatingsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode team ratings: %w", err)
	}

	ratings := make(map[string]float64, len(resp.Ratings))
	for _, r := range resp.Ratings {
		ratings[r.TeamID] = r.Rating
	}
	return ratings, nil
}
