package services

import (
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/stitts-dev/playoff-sim/internal/sim"
)

// RatedGame is one unplayed game the market has priced, the calibration
// target for the teams involved.
type RatedGame struct {
	HomeID     string
	AwayID     string
	MarketProb float64
}

// CalibrationService nudges seed ratings until the logistic model reproduces
// the market's win probabilities. Mini-batch gradient steps on the rating
// scale; a round ends when every game in a pass has been visited, and the
// loop stops early once the largest residual falls inside the tolerance.
type CalibrationService struct {
	logger    *logrus.Logger
	rounds    int
	batchSize int
	tolerance float64
	learnRate float64
	homeField float64
}

func NewCalibrationService(logger *logrus.Logger, rounds, batchSize int, tolerance, learnRate, homeField float64) *CalibrationService {
	if rounds <= 0 {
		rounds = 25
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	if learnRate <= 0 {
		learnRate = 120.0
	}
	if homeField == 0 {
		homeField = sim.DefaultHomeField
	}
	return &CalibrationService{
		logger:    logger,
		rounds:    rounds,
		batchSize: batchSize,
		tolerance: tolerance,
		learnRate: learnRate,
		homeField: homeField,
	}
}

// Calibrate returns an adjusted copy of ratings and the number of rounds it
// took to converge. Games naming a team without a rating are skipped. The
// input map is never modified.
func (c *CalibrationService) Calibrate(ratings map[string]float64, games []RatedGame) (map[string]float64, int) {
	adjusted := make(map[string]float64, len(ratings))
	for id, r := range ratings {
		adjusted[id] = r
	}

	usable := games[:0:0]
	for _, g := range games {
		if _, ok := adjusted[g.HomeID]; !ok {
			continue
		}
		if _, ok := adjusted[g.AwayID]; !ok {
			continue
		}
		if g.MarketProb <= 0 || g.MarketProb >= 1 {
			continue
		}
		usable = append(usable, g)
	}
	if len(usable) == 0 {
		return adjusted, 0
	}

	residuals := make([]float64, len(usable))
	deltas := make(map[string]float64, len(adjusted))

	rounds := 0
	for ; rounds < c.rounds; rounds++ {
		for start := 0; start < len(usable); start += c.batchSize {
			end := start + c.batchSize
			if end > len(usable) {
				end = len(usable)
			}
			batch := usable[start:end]

			for id := range deltas {
				deltas[id] = 0
			}
			for _, g := range batch {
				model := sim.WinProbability(adjusted[g.HomeID] + c.homeField - adjusted[g.AwayID])
				resid := g.MarketProb - model
				deltas[g.HomeID] += c.learnRate * resid
				deltas[g.AwayID] -= c.learnRate * resid
			}
			// Average the updates so a team priced in many games moves at
			// the same pace as one priced in few.
			scale := 1.0 / float64(len(batch))
			for id, d := range deltas {
				adjusted[id] += d * scale
			}
		}

		for i, g := range usable {
			model := sim.WinProbability(adjusted[g.HomeID] + c.homeField - adjusted[g.AwayID])
			residuals[i] = math.Abs(g.MarketProb - model)
		}
		worst := floats.Max(residuals)
		if worst < c.tolerance {
			rounds++
			break
		}
	}

	c.logger.WithFields(logrus.Fields{
		"component":     "calibration",
		"games":         len(usable),
		"rounds":        rounds,
		"mean_residual": stat.Mean(residuals, nil),
		"max_residual":  floats.Max(residuals),
	}).Info("Seed rating calibration finished")

	return adjusted, rounds
}
