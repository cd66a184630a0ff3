package sim

import "math"

// Default model constants. Both are externally-borrowed tuning values, so the
// simulator treats them as configuration and only falls back to these when a
// caller leaves them unset.
const (
	// DefaultTieProbability is the share of the outcome draw reserved for a
	// tie, roughly one tie per 272-game season.
	DefaultTieProbability = 1.0 / 272.0

	// DefaultHomeField is the rating bonus applied to the home team.
	DefaultHomeField = 48.0

	// DefaultRatingK scales post-game rating movement.
	DefaultRatingK = 20.0
)

// WinProbability converts a rating difference (home minus away, home-field
// bonus already applied) into the home team's win probability on the usual
// base-10, 400-point logistic curve.
func WinProbability(ratingDiff float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, -ratingDiff/400.0))
}

// updateRatings moves both teams' ratings after a decided game. pHome is the
// model's pre-game home win probability. A decisive result moves winner and
// loser by K scaled by how unexpected the result was; a tie nudges both
// toward each other by the expectation gap.
func updateRatings(ratings []float64, home, away int, winner int, pHome, k float64) {
	switch winner {
	case home:
		shift := k * (1 - pHome)
		ratings[home] += shift
		ratings[away] -= shift
	case away:
		shift := k * pHome
		ratings[home] -= shift
		ratings[away] += shift
	default: // tie
		shift := k * (pHome - 0.5)
		ratings[home] -= shift
		ratings[away] += shift
	}
}
