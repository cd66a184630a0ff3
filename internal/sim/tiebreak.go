package sim

import "math/rand"

// TiebreakKind selects which ordered step list applies to a tied group.
type TiebreakKind int

const (
	// TiebreakDivision orders teams that share a division.
	TiebreakDivision TiebreakKind = iota
	// TiebreakWildcard orders teams that may span divisions.
	TiebreakWildcard
)

const (
	// pctEpsilon bounds floating-point equality on winning percentages.
	pctEpsilon = 1e-9

	// minCommonGames is the validity threshold for the common-games step,
	// counted in games, not distinct opponents.
	minCommonGames = 4

	// maxTiebreakPasses caps restart loops. The restart rule is bounded by
	// pool size in practice; hitting this cap would mean a broken step, so
	// it only exists as a safety valve before the random fallback.
	maxTiebreakPasses = 64
)

// TiebreakContext carries the immutable inputs a resolution needs: league
// membership, the final per-trial counters (including SOV/SOS and the
// schedule graph), and the random source for the fallback of last resort.
type TiebreakContext struct {
	Teams []Team
	Stats []SeasonStats
	Rand  *rand.Rand
}

// tiebreakStep narrows a candidate pool or returns it unchanged when the
// criterion does not apply. Steps never grow the pool and never fail.
type tiebreakStep struct {
	name  string
	apply func(*TiebreakContext, []int) []int
}

var divisionSteps = []tiebreakStep{
	{"head-to-head", stepHeadToHead},
	{"division record", bestMetricStep(func(s *SeasonStats) float64 { return s.InDivision.Pct() })},
	{"common games", stepCommonGames},
	{"conference record", bestMetricStep(func(s *SeasonStats) float64 { return s.InConference.Pct() })},
	{"strength of victory", bestMetricStep(func(s *SeasonStats) float64 { return s.SOV })},
	{"strength of schedule", bestMetricStep(func(s *SeasonStats) float64 { return s.SOS })},
}

var wildcardSteps = []tiebreakStep{
	{"head-to-head", stepHeadToHead},
	{"conference record", bestMetricStep(func(s *SeasonStats) float64 { return s.InConference.Pct() })},
	{"common games", stepCommonGames},
	{"strength of victory", bestMetricStep(func(s *SeasonStats) float64 { return s.SOV })},
	{"strength of schedule", bestMetricStep(func(s *SeasonStats) float64 { return s.SOS })},
}

// ResolveTiebreak fully orders pool (team indexes) by overall winning
// percentage, resolving every group tied within epsilon through the step
// list for kind. Inputs are never mutated; an empty pool yields nil.
func ResolveTiebreak(ctx *TiebreakContext, pool []int, kind TiebreakKind) []int {
	if len(pool) == 0 {
		return nil
	}

	order := append([]int(nil), pool...)
	sortByOverallPct(ctx, order)

	ranked := make([]int, 0, len(order))
	for i := 0; i < len(order); {
		j := i + 1
		for j < len(order) && nearlyEqual(ctx.Stats[order[j]].Overall.Pct(), ctx.Stats[order[i]].Overall.Pct()) {
			j++
		}
		group := order[i:j]
		if len(group) == 1 {
			ranked = append(ranked, group[0])
		} else {
			ranked = append(ranked, ctx.resolveTiedGroup(group, kind)...)
		}
		i = j
	}
	return ranked
}

// resolveTiedGroup repeatedly extracts the next-best team from the tied pool.
// Removing the winner and re-running lets the wildcard pre-step re-derive a
// division's next representative instead of reusing the original ordering.
func (ctx *TiebreakContext) resolveTiedGroup(group []int, kind TiebreakKind) []int {
	remaining := append([]int(nil), group...)
	ranked := make([]int, 0, len(group))
	for len(remaining) > 0 {
		if len(remaining) == 1 {
			ranked = append(ranked, remaining[0])
			break
		}
		winner := ctx.findTiebreakerWinner(remaining, kind)
		ranked = append(ranked, winner)
		remaining = removeTeam(remaining, winner)
	}
	return ranked
}

// findTiebreakerWinner picks the single best team of a tied pool. Whenever a
// step eliminates anyone, resolution restarts from the first step with the
// reduced pool; only when a full pass leaves the pool untouched does the
// uniform random fallback decide.
func (ctx *TiebreakContext) findTiebreakerWinner(pool []int, kind TiebreakKind) int {
	candidates := pool
	steps := divisionSteps
	if kind == TiebreakWildcard {
		candidates = ctx.divisionRepresentatives(pool)
		steps = wildcardSteps
	}
	if len(candidates) == 1 {
		return candidates[0]
	}

	for pass := 0; pass < maxTiebreakPasses; pass++ {
		reduced := false
		for _, step := range steps {
			survivors := step.apply(ctx, candidates)
			if len(survivors) == 1 {
				return survivors[0]
			}
			if len(survivors) < len(candidates) {
				candidates = survivors
				reduced = true
				break // restart from head-to-head
			}
		}
		if !reduced {
			break
		}
	}

	// Every step exhausted on a still-tied pool: the procedure ends in a
	// coin flip, which is expected behavior rather than an error.
	return candidates[ctx.Rand.Intn(len(candidates))]
}

// divisionRepresentatives reduces a wildcard pool to at most one team per
// division by resolving each multi-team division with the division procedure.
// Division order follows first appearance in the pool.
func (ctx *TiebreakContext) divisionRepresentatives(pool []int) []int {
	var divOrder []string
	byDiv := make(map[string][]int)
	for _, t := range pool {
		key := ctx.Teams[t].Conference + "/" + ctx.Teams[t].Division
		if len(byDiv[key]) == 0 {
			divOrder = append(divOrder, key)
		}
		byDiv[key] = append(byDiv[key], t)
	}

	reps := make([]int, 0, len(divOrder))
	for _, key := range divOrder {
		members := byDiv[key]
		if len(members) == 1 {
			reps = append(reps, members[0])
			continue
		}
		reps = append(reps, ctx.findTiebreakerWinner(members, TiebreakDivision))
	}
	return reps
}

// stepHeadToHead applies the two very different head-to-head rules. With two
// candidates their direct record decides. With three or more it only applies
// on a clean sweep: one team that beat everyone else survives alone, or one
// team that lost to everyone else is eliminated alone. Splits and cycles fall
// through untouched.
func stepHeadToHead(ctx *TiebreakContext, pool []int) []int {
	if len(pool) == 2 {
		a, b := pool[0], pool[1]
		ra := ctx.recordAgainst(a, oneOpponent(b))
		rb := ctx.recordAgainst(b, oneOpponent(a))
		if ra.Games() == 0 {
			return pool
		}
		switch {
		case ra.Pct() > rb.Pct()+pctEpsilon:
			return pool[:1]
		case rb.Pct() > ra.Pct()+pctEpsilon:
			return pool[1:2]
		default:
			return pool
		}
	}

	for _, cand := range pool {
		swept, sweptOut := ctx.sweepStatus(cand, pool)
		if swept {
			return []int{cand}
		}
		if sweptOut {
			return removeTeam(append([]int(nil), pool...), cand)
		}
	}
	return pool
}

// sweepStatus reports whether cand beat (or lost to) every other pool member
// outright, having played all of them with no ties.
func (ctx *TiebreakContext) sweepStatus(cand int, pool []int) (swept, sweptOut bool) {
	allWins, allLosses := true, true
	for _, opp := range pool {
		if opp == cand {
			continue
		}
		r := ctx.recordAgainst(cand, oneOpponent(opp))
		if r.Games() == 0 || r.Ties > 0 {
			return false, false
		}
		if r.Losses > 0 {
			allWins = false
		}
		if r.Wins > 0 {
			allLosses = false
		}
	}
	return allWins, allLosses
}

// stepCommonGames ranks candidates by their combined record against the
// opponents every candidate has faced. The step requires each candidate to
// have at least minCommonGames games (duplicates count) against that set;
// otherwise it is not applicable and eliminates no one.
func stepCommonGames(ctx *TiebreakContext, pool []int) []int {
	inPool := make(map[int]bool, len(pool))
	for _, t := range pool {
		inPool[t] = true
	}

	// Opponents common to all candidates, excluding the candidates themselves.
	common := make(map[int]int) // opponent -> how many candidates faced it
	for _, t := range pool {
		seen := make(map[int]bool)
		for _, pg := range ctx.Stats[t].Played {
			if inPool[pg.Opp] || seen[pg.Opp] {
				continue
			}
			seen[pg.Opp] = true
			common[pg.Opp]++
		}
	}
	commonSet := make(map[int]bool)
	for opp, n := range common {
		if n == len(pool) {
			commonSet[opp] = true
		}
	}
	if len(commonSet) == 0 {
		return pool
	}

	records := make([]Record, len(pool))
	for i, t := range pool {
		records[i] = ctx.recordAgainst(t, commonSet)
		if records[i].Games() < minCommonGames {
			return pool
		}
	}

	best := records[0].Pct()
	for _, r := range records[1:] {
		if r.Pct() > best {
			best = r.Pct()
		}
	}
	survivors := make([]int, 0, len(pool))
	for i, t := range pool {
		if records[i].Pct() >= best-pctEpsilon {
			survivors = append(survivors, t)
		}
	}
	return survivors
}

// bestMetricStep keeps every candidate within epsilon of the maximum of a
// per-team metric; ties persist as multiple survivors.
func bestMetricStep(metric func(*SeasonStats) float64) func(*TiebreakContext, []int) []int {
	return func(ctx *TiebreakContext, pool []int) []int {
		best := metric(&ctx.Stats[pool[0]])
		for _, t := range pool[1:] {
			if v := metric(&ctx.Stats[t]); v > best {
				best = v
			}
		}
		survivors := make([]int, 0, len(pool))
		for _, t := range pool {
			if metric(&ctx.Stats[t]) >= best-pctEpsilon {
				survivors = append(survivors, t)
			}
		}
		return survivors
	}
}

// recordAgainst tallies a team's games against a set of opponents, counted
// per game played.
func (ctx *TiebreakContext) recordAgainst(team int, opponents map[int]bool) Record {
	var r Record
	for _, pg := range ctx.Stats[team].Played {
		if !opponents[pg.Opp] {
			continue
		}
		switch {
		case pg.Tied:
			r.Ties++
		case pg.Won:
			r.Wins++
		default:
			r.Losses++
		}
	}
	return r
}

func oneOpponent(opp int) map[int]bool {
	return map[int]bool{opp: true}
}

// sortByOverallPct orders team indexes by overall winning percentage,
// descending, with the original order preserved inside epsilon ties.
func sortByOverallPct(ctx *TiebreakContext, teams []int) {
	// Insertion sort keeps the grouping stable and the pools are tiny.
	for i := 1; i < len(teams); i++ {
		for j := i; j > 0; j-- {
			if ctx.Stats[teams[j]].Overall.Pct() > ctx.Stats[teams[j-1]].Overall.Pct()+pctEpsilon {
				teams[j], teams[j-1] = teams[j-1], teams[j]
			} else {
				break
			}
		}
	}
}

func nearlyEqual(a, b float64) bool {
	d := a - b
	return d < pctEpsilon && d > -pctEpsilon
}

func removeTeam(pool []int, team int) []int {
	out := pool[:0]
	for _, t := range pool {
		if t != team {
			out = append(out, t)
		}
	}
	return out
}
