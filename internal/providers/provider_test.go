package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/playoff-sim/internal/sim"
)

// missCache never hits, so every test request reaches the fake server.
type missCache struct {
	stored map[string]interface{}
}

func (c *missCache) GetSimple(key string, dest interface{}) error {
	return assert.AnError
}

func (c *missCache) SetSimple(key string, value interface{}, expiration time.Duration) error {
	if c.stored == nil {
		c.stored = make(map[string]interface{})
	}
	c.stored[key] = value
	return nil
}

// passBreaker executes directly without trip logic.
type passBreaker struct{}

func (passBreaker) Execute(service string, fn func() (interface{}, error)) (interface{}, error) {
	return fn()
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestGetTeamsDecodesAndSkipsUnassigned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/teams", r.URL.Path)
		assert.Equal(t, "2025", r.URL.Query().Get("season"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"season": 2025,
			"teams": [
				{
					"id": "BUF", "displayName": "Buffalo", "abbreviation": "BUF",
					"conference": "AFC", "division": "East",
					"record": {
						"overall": {"wins": 11, "losses": 5, "ties": 1},
						"division": {"wins": 4, "losses": 2, "ties": 0},
						"conference": {"wins": 8, "losses": 4, "ties": 0}
					}
				},
				{"id": "FA", "displayName": "Free Agents", "conference": "", "division": ""}
			]
		}`))
	}))
	defer srv.Close()

	cache := &missCache{}
	client := NewSportsDataClient(srv.URL, time.Second, cache, passBreaker{}, testLogger())

	teams, err := client.GetTeams(context.Background(), 2025)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "BUF", teams[0].ID)
	assert.Equal(t, "AFC", teams[0].Conference)
	assert.Equal(t, 11, teams[0].Wins)
	assert.Equal(t, 1, teams[0].Ties)
	assert.Equal(t, 4, teams[0].DivisionWins)
	assert.Equal(t, 8, teams[0].ConferenceWins)
	assert.Contains(t, cache.stored, "sports:teams:2025")
}

func TestGetScheduleMapsFinalsIncludingTies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"season": 2025,
			"events": [
				{"id": "g1", "week": 1, "homeTeam": "NE", "awayTeam": "BUF", "status": "final", "homeScore": 17, "awayScore": 24},
				{"id": "g2", "week": 1, "homeTeam": "DAL", "awayTeam": "PHI", "status": "final", "homeScore": 20, "awayScore": 20},
				{"id": "g3", "week": 2, "homeTeam": "BUF", "awayTeam": "NE", "status": "scheduled"}
			]
		}`))
	}))
	defer srv.Close()

	client := NewSportsDataClient(srv.URL, time.Second, &missCache{}, passBreaker{}, testLogger())

	games, err := client.GetSchedule(context.Background(), 2025)
	require.NoError(t, err)
	require.Len(t, games, 3)

	assert.True(t, games[0].Completed)
	assert.Equal(t, "BUF", games[0].Winner)

	assert.True(t, games[1].Completed)
	assert.Equal(t, sim.TieWinner, games[1].Winner)

	assert.False(t, games[2].Completed)
	assert.Empty(t, games[2].Winner)
}

func TestGetGameOddsDropsOutOfRangeProbabilities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"season": 2025,
			"markets": [
				{"gameId": "g1", "homeWinProbability": 0.62},
				{"gameId": "g2", "homeWinProbability": 1.3},
				{"gameId": "g3", "homeWinProbability": 0}
			]
		}`))
	}))
	defer srv.Close()

	client := NewMarketClient(srv.URL, "test-key", time.Second, &missCache{}, passBreaker{}, testLogger())

	odds, err := client.GetGameOdds(context.Background(), 2025, 2)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"g1": 0.62}, odds)
}

func TestGetTeamRatings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"season": 2025,
			"ratings": [
				{"teamId": "BUF", "rating": 1601.5},
				{"teamId": "NE", "rating": 1488.0}
			]
		}`))
	}))
	defer srv.Close()

	client := NewMarketClient(srv.URL, "", time.Second, &missCache{}, passBreaker{}, testLogger())

	ratings, err := client.GetTeamRatings(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"BUF": 1601.5, "NE": 1488.0}, ratings)
}

func TestFetchJSONRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewSportsDataClient(srv.URL, time.Second, &missCache{}, passBreaker{}, testLogger())

	_, err := client.GetTeams(context.Background(), 2025)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}
