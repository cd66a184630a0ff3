package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fourTeamLeague(t *testing.T, games []Game) *League {
	t.Helper()
	teams := []Team{
		{ID: "NE", Name: "New England", Conference: "AFC", Division: "East"},
		{ID: "BUF", Name: "Buffalo", Conference: "AFC", Division: "East"},
		{ID: "DAL", Name: "Dallas", Conference: "NFC", Division: "East"},
		{ID: "PHI", Name: "Philadelphia", Conference: "NFC", Division: "East"},
	}
	l, err := NewLeague(teams, games)
	require.NoError(t, err)
	return l
}

func evenRatings() map[string]float64 {
	return map[string]float64{"NE": 1500, "BUF": 1500, "DAL": 1500, "PHI": 1500}
}

func TestNewLeagueValidatesReferences(t *testing.T) {
	teams := []Team{{ID: "NE", Conference: "AFC", Division: "East"}}

	_, err := NewLeague(teams, []Game{{ID: "g1", Week: 1, HomeID: "NE", AwayID: "NYJ"}})
	assert.ErrorContains(t, err, "unknown away team")

	_, err = NewLeague(nil, nil)
	assert.ErrorContains(t, err, "no teams")

	_, err = NewLeague([]Team{teams[0], teams[0]}, nil)
	assert.ErrorContains(t, err, "duplicate team id")
}

func TestNewLeagueSortsGamesByWeek(t *testing.T) {
	l := fourTeamLeague(t, []Game{
		{ID: "late", Week: 18, HomeID: "NE", AwayID: "BUF"},
		{ID: "early", Week: 2, HomeID: "DAL", AwayID: "PHI"},
		{ID: "mid", Week: 9, HomeID: "NE", AwayID: "DAL"},
	})
	require.Equal(t, []string{"early", "mid", "late"}, []string{l.Games[0].ID, l.Games[1].ID, l.Games[2].ID})
}

func TestRunRejectsZeroTrials(t *testing.T) {
	l := fourTeamLeague(t, nil)
	_, err := Run(context.Background(), SimConfig{Trials: 0, SeedRatings: evenRatings()}, l)
	require.ErrorContains(t, err, "trial count must be positive")
}

func TestRunRejectsMissingSeedRating(t *testing.T) {
	l := fourTeamLeague(t, nil)
	ratings := evenRatings()
	delete(ratings, "PHI")
	_, err := Run(context.Background(), SimConfig{Trials: 10, SeedRatings: ratings}, l)
	require.ErrorContains(t, err, "missing seed rating for team PHI")
}

func TestRunRejectsBogusForcedOutcome(t *testing.T) {
	l := fourTeamLeague(t, []Game{{ID: "g1", Week: 1, HomeID: "NE", AwayID: "BUF"}})
	_, err := Run(context.Background(), SimConfig{
		Trials:         10,
		SeedRatings:    evenRatings(),
		ForcedOutcomes: map[string]string{"g1": "DAL"},
	}, l)
	require.ErrorContains(t, err, "not playing in game")
}

func TestRunHonorsForcedOutcomes(t *testing.T) {
	l := fourTeamLeague(t, []Game{
		{ID: "g1", Week: 1, HomeID: "NE", AwayID: "BUF"},
		{ID: "g2", Week: 1, HomeID: "DAL", AwayID: "PHI"},
	})
	res, err := Run(context.Background(), SimConfig{
		Trials:      200,
		Seed:        7,
		SeedRatings: evenRatings(),
		// Even with the market certain of a home win, the forced away win rules.
		MarketOdds:     map[string]float64{"g1": 0.99},
		ForcedOutcomes: map[string]string{"g1": "BUF", "g2": "DAL"},
	}, l)
	require.NoError(t, err)

	assert.Zero(t, res.GameOdds["g1"])
	assert.Equal(t, 1.0, res.GameOdds["g2"])
	assert.Equal(t, 1.0, res.Teams["BUF"].DivisionTitle)
	assert.Zero(t, res.Teams["NE"].DivisionTitle)
}

func TestRunForcedTieSplitsDivisionEvenly(t *testing.T) {
	l := fourTeamLeague(t, []Game{{ID: "g1", Week: 1, HomeID: "NE", AwayID: "BUF"}})
	res, err := Run(context.Background(), SimConfig{
		Trials:         4000,
		Seed:           11,
		SeedRatings:    evenRatings(),
		ForcedOutcomes: map[string]string{"g1": TieWinner},
	}, l)
	require.NoError(t, err)

	// A forced tie leaves the division dead level; the random fallback
	// should split the title roughly evenly.
	assert.Zero(t, res.GameOdds["g1"])
	assert.InDelta(t, 0.5, res.Teams["NE"].DivisionTitle, 0.05)
	assert.InDelta(t, 0.5, res.Teams["BUF"].DivisionTitle, 0.05)
	assert.Equal(t, 1.0, res.Teams["NE"].Playoffs, "two-team conference always qualifies both")
}

func TestRunConvergesOnFixedOdds(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping convergence test in short mode")
	}
	games := []Game{
		{ID: "g1", Week: 1, HomeID: "NE", AwayID: "BUF"},
		{ID: "g2", Week: 1, HomeID: "DAL", AwayID: "PHI"},
		{ID: "g3", Week: 2, HomeID: "BUF", AwayID: "NE"},
		{ID: "g4", Week: 2, HomeID: "PHI", AwayID: "DAL"},
		{ID: "g5", Week: 3, HomeID: "NE", AwayID: "DAL"},
		{ID: "g6", Week: 3, HomeID: "BUF", AwayID: "PHI"},
	}
	odds := make(map[string]float64, len(games))
	for _, g := range games {
		odds[g.ID] = 0.5
	}

	l := fourTeamLeague(t, games)
	res, err := Run(context.Background(), SimConfig{
		Trials:      10000,
		Seed:        1,
		Workers:     4,
		SeedRatings: evenRatings(),
		MarketOdds:  odds,
	}, l)
	require.NoError(t, err)
	require.Equal(t, 10000, res.Trials)

	for id, p := range res.GameOdds {
		assert.InDelta(t, 0.5, p, 0.02, "game %s should converge to its fixed probability", id)
	}
}

func TestRunDeterministicForSeed(t *testing.T) {
	games := []Game{
		{ID: "g1", Week: 1, HomeID: "NE", AwayID: "BUF"},
		{ID: "g2", Week: 2, HomeID: "DAL", AwayID: "PHI"},
		{ID: "g3", Week: 3, HomeID: "NE", AwayID: "DAL"},
	}
	cfg := SimConfig{Trials: 500, Seed: 99, Workers: 2, SeedRatings: evenRatings()}

	first, err := Run(context.Background(), cfg, fourTeamLeague(t, games))
	require.NoError(t, err)
	second, err := Run(context.Background(), cfg, fourTeamLeague(t, games))
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	l := fourTeamLeague(t, []Game{{ID: "g1", Week: 1, HomeID: "NE", AwayID: "BUF"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, SimConfig{Trials: 100000, SeedRatings: evenRatings()}, l)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunSeedsFromCompletedGames(t *testing.T) {
	l := fourTeamLeague(t, []Game{
		{ID: "g1", Week: 1, HomeID: "NE", AwayID: "BUF", Completed: true, Winner: "NE"},
		{ID: "g2", Week: 1, HomeID: "DAL", AwayID: "PHI", Completed: true, Winner: TieWinner},
	})
	res, err := Run(context.Background(), SimConfig{Trials: 50, Seed: 3, SeedRatings: evenRatings()}, l)
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.Teams["NE"].DivisionTitle, "completed result decides the finished division")
	assert.Empty(t, res.GameOdds, "completed games get no simulated odds")
}

func TestRatingUpdateMovesWinnerUp(t *testing.T) {
	ratings := []float64{1500, 1500}
	p := WinProbability(ratings[0] + DefaultHomeField - ratings[1])
	updateRatings(ratings, 0, 1, 0, p, DefaultRatingK)
	assert.Greater(t, ratings[0], 1500.0)
	assert.Less(t, ratings[1], 1500.0)
	assert.InDelta(t, 3000.0, ratings[0]+ratings[1], 1e-9, "decisive updates are zero-sum")

	// A tie drags the home favorite down and the away underdog up.
	ratings = []float64{1600, 1500}
	p = WinProbability(ratings[0] + DefaultHomeField - ratings[1])
	updateRatings(ratings, 0, 1, tieOutcome, p, DefaultRatingK)
	assert.Less(t, ratings[0], 1600.0)
	assert.Greater(t, ratings[1], 1500.0)
}

func TestWinProbability(t *testing.T) {
	assert.InDelta(t, 0.5, WinProbability(0), 1e-12)
	assert.Greater(t, WinProbability(100), 0.5)
	assert.Less(t, WinProbability(-100), 0.5)
	assert.InDelta(t, 1.0, WinProbability(100)+WinProbability(-100), 1e-12)
}
