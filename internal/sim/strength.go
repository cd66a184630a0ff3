package sim

// ComputeScheduleStrength fills in the SOS and SOV fields of every entry in
// stats from the played-opponents graph.
//
// Strength of Schedule is the combined record of all opponents: the sum of
// each opponent's wins (ties count half) over the sum of their games played,
// counted once per game so an opponent faced twice weighs twice. Strength of
// Victory is the same ratio restricted to defeated opponents. Both are 0 when
// the denominator is 0.
//
// Opponent totals are precomputed once; the pass over the schedule graph is
// O(total games).
func ComputeScheduleStrength(stats []SeasonStats) {
	winEquiv := make([]float64, len(stats))
	games := make([]float64, len(stats))
	for i := range stats {
		winEquiv[i] = float64(stats[i].Overall.Wins) + 0.5*float64(stats[i].Overall.Ties)
		games[i] = float64(stats[i].Overall.Games())
	}

	for i := range stats {
		var sosWins, sosGames, sovWins, sovGames float64
		for _, pg := range stats[i].Played {
			sosWins += winEquiv[pg.Opp]
			sosGames += games[pg.Opp]
			if pg.Won {
				sovWins += winEquiv[pg.Opp]
				sovGames += games[pg.Opp]
			}
		}
		stats[i].SOS = ratio(sosWins, sosGames)
		stats[i].SOV = ratio(sovWins, sovGames)
	}
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
