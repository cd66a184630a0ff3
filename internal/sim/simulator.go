package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// wildcardSlots is the number of wildcard berths per conference.
const wildcardSlots = 3

// progressStride is how many trials a shard completes between progress
// callbacks.
const progressStride = 100

// forcedNone marks a game with no user-forced outcome.
const forcedNone = -2

// SimConfig parameterizes one simulation run. Zero values for the model knobs
// (TieProbability, HomeField, RatingK, Workers) fall back to defaults; Trials
// and SeedRatings are mandatory and validated before any work starts.
type SimConfig struct {
	Trials int

	// Workers shards trials across goroutines. Each shard owns its counter
	// arrays and an independent random stream, merged after the run; 0 or 1
	// keeps the reference sequential behavior.
	Workers int

	// Seed is the base seed for the random streams (shard i uses Seed+i).
	// 0 picks a time-based seed.
	Seed int64

	TieProbability float64
	HomeField      float64
	RatingK        float64

	// MarketOdds overrides the rating model's home win probability for
	// specific games (game ID -> probability).
	MarketOdds map[string]float64

	// SeedRatings is the market-implied starting rating per team ID. Every
	// team in the league must have one.
	SeedRatings map[string]float64

	// ForcedOutcomes pins specific games (game ID -> winning team ID or
	// TieWinner).
	ForcedOutcomes map[string]string

	// Progress, when set, is called periodically with completed and total
	// trial counts. It may be called from multiple goroutines.
	Progress func(completed, total int)
}

// TeamOutcome is a team's share of trials ending in each postseason outcome.
type TeamOutcome struct {
	TeamID        string  `json:"team_id"`
	Playoffs      float64 `json:"playoffs"`
	DivisionTitle float64 `json:"division_title"`
	Wildcard      float64 `json:"wildcard"`
	TopSeed       float64 `json:"top_seed"`
}

// SimResult aggregates a full run: per-team outcome probabilities and the
// simulated home win rate for every game that was unplayed going in.
type SimResult struct {
	Trials   int                    `json:"trials"`
	Teams    map[string]TeamOutcome `json:"teams"`
	GameOdds map[string]float64     `json:"game_odds"`
}

// remainingGame is the precompiled form of an unplayed game: dense team
// indexes, the forced outcome if any, and the market override if known.
type remainingGame struct {
	gameIdx int
	home    int
	away    int
	forced  int // team index, tieOutcome, or forcedNone
	odds    float64
	hasOdds bool
}

// simBase is everything shards share read-only: the league, the standings
// template, base ratings and the compiled remaining schedule.
type simBase struct {
	league      *League
	template    []SeasonStats
	baseRatings []float64
	remaining   []remainingGame

	tieProb   float64
	homeField float64
	ratingK   float64
}

// shardTally is one shard's private counters, merged after all trials.
type shardTally struct {
	playoffs       []int
	divisionTitles []int
	wildcards      []int
	topSeeds       []int
	homeWins       []int
}

func newShardTally(teams, games int) *shardTally {
	return &shardTally{
		playoffs:       make([]int, teams),
		divisionTitles: make([]int, teams),
		wildcards:      make([]int, teams),
		topSeeds:       make([]int, teams),
		homeWins:       make([]int, games),
	}
}

func (t *shardTally) merge(other *shardTally) {
	for i := range t.playoffs {
		t.playoffs[i] += other.playoffs[i]
		t.divisionTitles[i] += other.divisionTitles[i]
		t.wildcards[i] += other.wildcards[i]
		t.topSeeds[i] += other.topSeeds[i]
	}
	for i := range t.homeWins {
		t.homeWins[i] += other.homeWins[i]
	}
}

// trialScratch is a worker's reusable per-trial state. Cloning resets it from
// the template without reallocating the schedule-graph backing arrays.
type trialScratch struct {
	stats   []SeasonStats
	played  [][]OpponentGame
	ratings []float64
}

func newTrialScratch(base *simBase) *trialScratch {
	n := len(base.template)
	sc := &trialScratch{
		stats:   make([]SeasonStats, n),
		played:  make([][]OpponentGame, n),
		ratings: make([]float64, n),
	}
	for i := range sc.played {
		sc.played[i] = make([]OpponentGame, 0, cap(base.template[i].Played))
	}
	return sc
}

func (sc *trialScratch) reset(base *simBase) {
	for i := range base.template {
		sc.stats[i] = base.template[i]
		sc.stats[i].Played = append(sc.played[i][:0], base.template[i].Played...)
	}
	copy(sc.ratings, base.baseRatings)
}

// Run replays the remaining schedule cfg.Trials times and aggregates
// postseason outcomes. Configuration errors (no trials, missing seed ratings,
// malformed forced outcomes) fail before any simulation work; cancellation is
// checked between trials and surfaces ctx.Err().
func Run(ctx context.Context, cfg SimConfig, league *League) (*SimResult, error) {
	if league == nil || len(league.Teams) == 0 {
		return nil, fmt.Errorf("simulation: no teams in league")
	}
	if len(league.Conferences()) == 0 {
		return nil, fmt.Errorf("simulation: empty conference partition")
	}
	if cfg.Trials < 1 {
		return nil, fmt.Errorf("simulation: trial count must be positive, got %d", cfg.Trials)
	}

	base, err := newSimBase(cfg, league)
	if err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > cfg.Trials {
		workers = cfg.Trials
	}
	baseSeed := cfg.Seed
	if baseSeed == 0 {
		baseSeed = time.Now().UnixNano()
	}

	var (
		wg        sync.WaitGroup
		completed atomic.Int64
		tallies   = make([]*shardTally, workers)
		shardErrs = make([]error, workers)
	)

	perShard := cfg.Trials / workers
	extra := cfg.Trials % workers

	for w := 0; w < workers; w++ {
		trials := perShard
		if w < extra {
			trials++
		}
		wg.Add(1)
		go func(shard, trials int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(baseSeed + int64(shard)))
			tally := newShardTally(len(league.Teams), len(base.remaining))
			scratch := newTrialScratch(base)

			for t := 0; t < trials; t++ {
				if err := ctx.Err(); err != nil {
					shardErrs[shard] = err
					return
				}
				base.runTrial(scratch, rng, tally)
				if done := completed.Add(1); cfg.Progress != nil && (done%progressStride == 0 || int(done) == cfg.Trials) {
					cfg.Progress(int(done), cfg.Trials)
				}
			}
			tallies[shard] = tally
		}(w, trials)
	}
	wg.Wait()

	for _, err := range shardErrs {
		if err != nil {
			return nil, err
		}
	}

	total := tallies[0]
	for _, t := range tallies[1:] {
		total.merge(t)
	}
	return base.collect(total, cfg.Trials), nil
}

func newSimBase(cfg SimConfig, league *League) (*simBase, error) {
	base := &simBase{
		league:      league,
		template:    league.baseStats(),
		baseRatings: make([]float64, len(league.Teams)),
		tieProb:     cfg.TieProbability,
		homeField:   cfg.HomeField,
		ratingK:     cfg.RatingK,
	}
	if base.tieProb <= 0 {
		base.tieProb = DefaultTieProbability
	}
	if base.homeField == 0 {
		base.homeField = DefaultHomeField
	}
	if base.ratingK == 0 {
		base.ratingK = DefaultRatingK
	}

	for i, t := range league.Teams {
		rating, ok := cfg.SeedRatings[t.ID]
		if !ok {
			return nil, fmt.Errorf("simulation: missing seed rating for team %s", t.ID)
		}
		base.baseRatings[i] = rating
	}

	for gi, g := range league.Games {
		if g.Completed {
			continue
		}
		home, _ := league.TeamIndex(g.HomeID)
		away, _ := league.TeamIndex(g.AwayID)
		rg := remainingGame{gameIdx: gi, home: home, away: away, forced: forcedNone}

		if forced, ok := cfg.ForcedOutcomes[g.ID]; ok {
			switch forced {
			case TieWinner:
				rg.forced = tieOutcome
			case g.HomeID:
				rg.forced = home
			case g.AwayID:
				rg.forced = away
			default:
				return nil, fmt.Errorf("simulation: forced winner %q is not playing in game %s", forced, g.ID)
			}
		}
		if odds, ok := cfg.MarketOdds[g.ID]; ok {
			rg.odds = odds
			rg.hasOdds = true
		}
		base.remaining = append(base.remaining, rg)
	}

	return base, nil
}

// runTrial replays one universe: every remaining game in week order, rating
// updates carried forward, then schedule strength and seeding.
func (b *simBase) runTrial(sc *trialScratch, rng *rand.Rand, tally *shardTally) {
	sc.reset(b)

	for gi := range b.remaining {
		g := &b.remaining[gi]
		pModel := WinProbability(sc.ratings[g.home] + b.homeField - sc.ratings[g.away])

		winner := g.forced
		if winner == forcedNone {
			r := rng.Float64()
			if r < b.tieProb {
				winner = tieOutcome
			} else {
				r = (r - b.tieProb) / (1 - b.tieProb)
				p := pModel
				if g.hasOdds {
					p = g.odds
				}
				if r < p {
					winner = g.home
				} else {
					winner = g.away
				}
			}
		}

		applyOutcome(sc.stats, b.league, g.home, g.away, winner)
		updateRatings(sc.ratings, g.home, g.away, winner, pModel, b.ratingK)
		if winner == g.home {
			tally.homeWins[gi]++
		}
	}

	ComputeScheduleStrength(sc.stats)
	b.seed(sc, rng, tally)
}

// seed assigns the trial's postseason slots: a winner per division, the top
// seed among division winners, and the top wildcards per conference.
func (b *simBase) seed(sc *trialScratch, rng *rand.Rand, tally *shardTally) {
	tctx := &TiebreakContext{Teams: b.league.Teams, Stats: sc.stats, Rand: rng}

	for _, conf := range b.league.Conferences() {
		var divisionWinners, wildcardPool []int
		for _, divKey := range b.league.Divisions(conf) {
			ranked := ResolveTiebreak(tctx, b.league.DivisionMembers(divKey), TiebreakDivision)
			winner := ranked[0]
			tally.playoffs[winner]++
			tally.divisionTitles[winner]++
			divisionWinners = append(divisionWinners, winner)
			wildcardPool = append(wildcardPool, ranked[1:]...)
		}

		seeds := ResolveTiebreak(tctx, divisionWinners, TiebreakWildcard)
		tally.topSeeds[seeds[0]]++

		wildcards := ResolveTiebreak(tctx, wildcardPool, TiebreakWildcard)
		for i := 0; i < wildcardSlots && i < len(wildcards); i++ {
			tally.playoffs[wildcards[i]]++
			tally.wildcards[wildcards[i]]++
		}
	}
}

// collect converts raw counters into probabilities.
func (b *simBase) collect(tally *shardTally, trials int) *SimResult {
	res := &SimResult{
		Trials:   trials,
		Teams:    make(map[string]TeamOutcome, len(b.league.Teams)),
		GameOdds: make(map[string]float64, len(b.remaining)),
	}
	n := float64(trials)
	for i, t := range b.league.Teams {
		res.Teams[t.ID] = TeamOutcome{
			TeamID:        t.ID,
			Playoffs:      float64(tally.playoffs[i]) / n,
			DivisionTitle: float64(tally.divisionTitles[i]) / n,
			Wildcard:      float64(tally.wildcards[i]) / n,
			TopSeed:       float64(tally.topSeeds[i]) / n,
		}
	}
	for gi, g := range b.remaining {
		res.GameOdds[b.league.Games[g.gameIdx].ID] = float64(tally.homeWins[gi]) / n
	}
	return res
}
