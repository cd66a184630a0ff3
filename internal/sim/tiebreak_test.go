package sim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tbTeams builds n teams in the given conference/division labels, one label
// pair per team.
func tbTeams(labels ...[2]string) []Team {
	teams := make([]Team, len(labels))
	for i, l := range labels {
		teams[i] = Team{
			ID:         string(rune('A' + i)),
			Name:       "Team " + string(rune('A'+i)),
			Conference: l[0],
			Division:   l[1],
		}
	}
	return teams
}

func sameDivision(n int) []Team {
	labels := make([][2]string, n)
	for i := range labels {
		labels[i] = [2]string{"AFC", "East"}
	}
	return tbTeams(labels...)
}

// addGame records one game between teams a and b in the schedule graph and
// overall counters. result is 'a', 'b' or 't'.
func addGame(stats []SeasonStats, a, b int, result byte) {
	switch result {
	case 't':
		stats[a].Overall.Ties++
		stats[b].Overall.Ties++
		stats[a].Played = append(stats[a].Played, OpponentGame{Opp: b, Tied: true})
		stats[b].Played = append(stats[b].Played, OpponentGame{Opp: a, Tied: true})
	case 'a':
		stats[a].Overall.Wins++
		stats[b].Overall.Losses++
		stats[a].Played = append(stats[a].Played, OpponentGame{Opp: b, Won: true})
		stats[b].Played = append(stats[b].Played, OpponentGame{Opp: a})
	case 'b':
		stats[b].Overall.Wins++
		stats[a].Overall.Losses++
		stats[b].Played = append(stats[b].Played, OpponentGame{Opp: a, Won: true})
		stats[a].Played = append(stats[a].Played, OpponentGame{Opp: b})
	}
}

func testCtx(teams []Team, stats []SeasonStats, seed int64) *TiebreakContext {
	return &TiebreakContext{Teams: teams, Stats: stats, Rand: rand.New(rand.NewSource(seed))}
}

func TestResolveTiebreakEmptyPool(t *testing.T) {
	ctx := testCtx(nil, nil, 1)
	assert.Nil(t, ResolveTiebreak(ctx, nil, TiebreakDivision))
}

func TestHeadToHeadDecidesTwoTeamTie(t *testing.T) {
	teams := sameDivision(2)
	stats := make([]SeasonStats, 2)
	// A beat B twice head to head; equalize overall records.
	addGame(stats, 0, 1, 'a')
	addGame(stats, 0, 1, 'a')
	stats[0].Overall = Record{Wins: 8, Losses: 8}
	stats[1].Overall = Record{Wins: 8, Losses: 8}

	ranked := ResolveTiebreak(testCtx(teams, stats, 1), []int{1, 0}, TiebreakDivision)
	require.Equal(t, []int{0, 1}, ranked)
}

func TestHeadToHeadNotPlayedFallsThrough(t *testing.T) {
	teams := sameDivision(2)
	stats := make([]SeasonStats, 2)
	stats[0].Overall = Record{Wins: 8, Losses: 8}
	stats[1].Overall = Record{Wins: 8, Losses: 8}
	stats[0].InDivision = Record{Wins: 4, Losses: 1}
	stats[1].InDivision = Record{Wins: 2, Losses: 3}

	// No head-to-head games: division record must decide.
	ranked := ResolveTiebreak(testCtx(teams, stats, 1), []int{1, 0}, TiebreakDivision)
	require.Equal(t, []int{0, 1}, ranked)
}

func TestHeadToHeadCycleFallsThrough(t *testing.T) {
	teams := sameDivision(3)
	stats := make([]SeasonStats, 3)
	// A beats B, B beats C, C beats A: no sweep either way.
	addGame(stats, 0, 1, 'a')
	addGame(stats, 1, 2, 'a')
	addGame(stats, 2, 0, 'a')
	for i := range stats {
		stats[i].Overall = Record{Wins: 9, Losses: 7}
	}
	// Division record separates the cycle: B is best.
	stats[0].InDivision = Record{Wins: 3, Losses: 3}
	stats[1].InDivision = Record{Wins: 5, Losses: 1}
	stats[2].InDivision = Record{Wins: 3, Losses: 3}

	ranked := ResolveTiebreak(testCtx(teams, stats, 1), []int{0, 1, 2}, TiebreakDivision)
	require.Equal(t, 1, ranked[0], "cycle must fall through head-to-head to division record")
}

func TestHeadToHeadSweepWinsOutright(t *testing.T) {
	teams := sameDivision(3)
	stats := make([]SeasonStats, 3)
	// C swept both A and B; everything else favors A.
	addGame(stats, 2, 0, 'a')
	addGame(stats, 2, 1, 'a')
	addGame(stats, 0, 1, 'a')
	for i := range stats {
		stats[i].Overall = Record{Wins: 9, Losses: 7}
	}
	stats[0].InDivision = Record{Wins: 5, Losses: 1}
	stats[1].InDivision = Record{Wins: 2, Losses: 4}
	stats[2].InDivision = Record{Wins: 3, Losses: 3}

	ranked := ResolveTiebreak(testCtx(teams, stats, 1), []int{0, 1, 2}, TiebreakDivision)
	require.Equal(t, 2, ranked[0])
}

func TestHeadToHeadSweptOutEliminatedAlone(t *testing.T) {
	teams := sameDivision(3)
	stats := make([]SeasonStats, 3)
	// C lost to both A and B; A and B split, so after C's elimination the
	// restarted head-to-head cannot separate them and division record must.
	addGame(stats, 0, 2, 'a')
	addGame(stats, 1, 2, 'a')
	addGame(stats, 0, 1, 'a')
	addGame(stats, 0, 1, 'b')
	for i := range stats {
		stats[i].Overall = Record{Wins: 9, Losses: 7}
	}
	stats[0].InDivision = Record{Wins: 3, Losses: 3}
	stats[1].InDivision = Record{Wins: 4, Losses: 2}
	stats[2].InDivision = Record{Wins: 5, Losses: 1} // best record, but swept out

	ranked := ResolveTiebreak(testCtx(teams, stats, 1), []int{0, 1, 2}, TiebreakDivision)
	require.Equal(t, []int{1, 0, 2}, ranked)
}

func TestRestartRuleReturnsToHeadToHead(t *testing.T) {
	teams := sameDivision(3)
	stats := make([]SeasonStats, 3)
	// Head-to-head cycle, so the three-team step is not applicable.
	addGame(stats, 0, 1, 'a')
	addGame(stats, 1, 2, 'a')
	addGame(stats, 2, 0, 'a')
	for i := range stats {
		stats[i].Overall = Record{Wins: 9, Losses: 7}
	}
	// Division record eliminates C only.
	stats[0].InDivision = Record{Wins: 4, Losses: 2}
	stats[1].InDivision = Record{Wins: 4, Losses: 2}
	stats[2].InDivision = Record{Wins: 2, Losses: 4}
	// If resolution continued past division record instead of restarting,
	// conference record would pick B. Restarting re-runs head-to-head on
	// {A, B}, where A won the meeting.
	stats[0].InConference = Record{Wins: 6, Losses: 6}
	stats[1].InConference = Record{Wins: 8, Losses: 4}
	stats[2].InConference = Record{Wins: 6, Losses: 6}

	ranked := ResolveTiebreak(testCtx(teams, stats, 1), []int{0, 1, 2}, TiebreakDivision)
	require.Equal(t, 0, ranked[0], "after an elimination, resolution must restart from head-to-head")
}

func TestCommonGamesRequiresFourGames(t *testing.T) {
	build := func(meetingsPerOpponent int) ([]Team, []SeasonStats) {
		teams := append(sameDivision(2),
			Team{ID: "C", Conference: "AFC", Division: "North"},
			Team{ID: "D", Conference: "AFC", Division: "South"},
		)
		stats := make([]SeasonStats, 4)
		// A beats the common opponents (2 and 3) every time, B always loses.
		for m := 0; m < meetingsPerOpponent; m++ {
			addGame(stats, 0, 2, 'a')
			addGame(stats, 0, 3, 'a')
			addGame(stats, 1, 2, 'b')
			addGame(stats, 1, 3, 'b')
		}
		stats[0].Overall = Record{Wins: 9, Losses: 7}
		stats[1].Overall = Record{Wins: 9, Losses: 7}
		stats[0].InDivision = Record{Wins: 3, Losses: 3}
		stats[1].InDivision = Record{Wins: 3, Losses: 3}
		// Conference record favors B, the step after common games.
		stats[0].InConference = Record{Wins: 6, Losses: 6}
		stats[1].InConference = Record{Wins: 8, Losses: 4}
		return teams, stats
	}

	// Two common opponents faced twice each: 4 games, the step applies.
	teams, stats := build(2)
	ranked := ResolveTiebreak(testCtx(teams, stats, 1), []int{0, 1}, TiebreakDivision)
	assert.Equal(t, []int{0, 1}, ranked, "four common games qualify, 4-0 beats 0-4")

	// Same two opponents faced once each: only 2 games, not applicable, so
	// conference record decides the other way.
	teams, stats = build(1)
	ranked = ResolveTiebreak(testCtx(teams, stats, 1), []int{0, 1}, TiebreakDivision)
	assert.Equal(t, []int{1, 0}, ranked, "two common games are below the validity threshold")
}

func TestTiedTenAndSevenCommonGamesDecide(t *testing.T) {
	// Two teams 10-7, head-to-head split 1-1, two shared opponents faced
	// twice each (4-0 against them vs 0-4), everything else level.
	teams := append(sameDivision(2),
		Team{ID: "C", Conference: "AFC", Division: "North"},
		Team{ID: "D", Conference: "AFC", Division: "South"},
	)
	stats := make([]SeasonStats, 4)
	addGame(stats, 0, 1, 'a')
	addGame(stats, 0, 1, 'b')
	for m := 0; m < 2; m++ {
		addGame(stats, 0, 2, 'a')
		addGame(stats, 0, 3, 'a')
		addGame(stats, 1, 2, 'b')
		addGame(stats, 1, 3, 'b')
	}
	stats[0].Overall = Record{Wins: 10, Losses: 7}
	stats[1].Overall = Record{Wins: 10, Losses: 7}
	stats[0].InDivision = Record{Wins: 4, Losses: 2}
	stats[1].InDivision = Record{Wins: 4, Losses: 2}
	stats[0].InConference = Record{Wins: 7, Losses: 5}
	stats[1].InConference = Record{Wins: 7, Losses: 5}

	ranked := ResolveTiebreak(testCtx(teams, stats, 1), []int{1, 0}, TiebreakDivision)
	require.Equal(t, []int{0, 1}, ranked)
}

func TestWildcardDivisionPreStep(t *testing.T) {
	// Three tied wildcard candidates, two sharing a division. The division
	// pair must be reduced to one representative by the division procedure
	// before any wildcard step runs, and once that representative wins a
	// slot, the next call must re-derive the other as the new representative.
	teams := tbTeams(
		[2]string{"AFC", "East"},
		[2]string{"AFC", "East"},
		[2]string{"AFC", "North"},
	)
	stats := make([]SeasonStats, 3)
	// A beat B head-to-head, so A represents the East.
	addGame(stats, 0, 1, 'a')
	for i := range stats {
		stats[i].Overall = Record{Wins: 9, Losses: 7}
	}
	// Conference record: C is better than A, worse than B. With B screened
	// out behind A, C must win the first wildcard slot even though B's
	// conference record would beat it.
	stats[0].InConference = Record{Wins: 6, Losses: 6}
	stats[1].InConference = Record{Wins: 10, Losses: 2}
	stats[2].InConference = Record{Wins: 8, Losses: 4}

	ranked := ResolveTiebreak(testCtx(teams, stats, 1), []int{0, 1, 2}, TiebreakWildcard)
	require.Equal(t, []int{2, 0, 1}, ranked)
}

func TestRandomFallbackUniform(t *testing.T) {
	teams := sameDivision(3)
	stats := make([]SeasonStats, 3)
	for i := range stats {
		stats[i].Overall = Record{Wins: 8, Losses: 8}
	}

	const draws = 3000
	counts := make(map[int]int)
	for seed := int64(0); seed < draws; seed++ {
		ranked := ResolveTiebreak(testCtx(teams, stats, seed), []int{0, 1, 2}, TiebreakDivision)
		counts[ranked[0]]++
	}
	for team, n := range counts {
		assert.InDelta(t, draws/3, n, draws/10, "team %d should win about a third of coin flips", team)
	}
}

func TestResolveTiebreakDeterministicForSeed(t *testing.T) {
	teams := sameDivision(4)
	stats := make([]SeasonStats, 4)
	for i := range stats {
		stats[i].Overall = Record{Wins: 8, Losses: 8}
	}
	first := ResolveTiebreak(testCtx(teams, stats, 42), []int{0, 1, 2, 3}, TiebreakDivision)
	second := ResolveTiebreak(testCtx(teams, stats, 42), []int{0, 1, 2, 3}, TiebreakDivision)
	require.Equal(t, first, second)
}

func TestResolveTiebreakDoesNotMutateInputs(t *testing.T) {
	teams := sameDivision(3)
	stats := make([]SeasonStats, 3)
	stats[0].Overall = Record{Wins: 10, Losses: 6}
	stats[1].Overall = Record{Wins: 8, Losses: 8}
	stats[2].Overall = Record{Wins: 9, Losses: 7}

	pool := []int{0, 1, 2}
	ranked := ResolveTiebreak(testCtx(teams, stats, 1), pool, TiebreakDivision)
	assert.Equal(t, []int{0, 2, 1}, ranked)
	assert.Equal(t, []int{0, 1, 2}, pool, "input pool must not be reordered")
}

func TestGroupingSplitsByWinPercentage(t *testing.T) {
	// Only the two 9-7 teams form a tied group; the 10-6 team is already
	// resolved and must rank first without entering the step list.
	teams := sameDivision(3)
	stats := make([]SeasonStats, 3)
	addGame(stats, 2, 0, 'a') // head-to-head for the tied pair
	stats[0].Overall = Record{Wins: 9, Losses: 7}
	stats[1].Overall = Record{Wins: 10, Losses: 6}
	stats[2].Overall = Record{Wins: 9, Losses: 7}

	ranked := ResolveTiebreak(testCtx(teams, stats, 1), []int{0, 1, 2}, TiebreakDivision)
	require.Equal(t, []int{1, 2, 0}, ranked)
}
