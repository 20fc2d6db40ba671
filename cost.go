package qchsh

import (
	"fmt"
	"math"
)

// QuantumBound is the largest CHSH score any quantum state can reach, 2√2.
const QuantumBound = 2 * math.Sqrt2

// ClassicalBound is the largest CHSH score of a local hidden-variable model.
const ClassicalBound = 2.0

// InputPair is one combination of the two parties' binary inputs.
type InputPair struct {
	X, Y int
}

// Inputs lists the input pairs in the order the score accumulates them.
var Inputs = [4]InputPair{{0, 0}, {0, 1}, {1, 0}, {1, 1}}

// CHSHSign is (-1)^(x·y): negative only for the pair (1, 1).
func CHSHSign(x, y int) float64 {
	if x*y == 1 {
		return -1
	}

	return 1
}

// Correlators evaluates C(x, y) for every input pair, in Inputs order.
func Correlators(s ScenarioSettings) ([4]float64, error) {
	var out [4]float64

	for i, in := range Inputs {
		c, err := EvaluateCorrelator(s.Params(in.X, in.Y))
		if err != nil {
			return out, fmt.Errorf("correlator (%d,%d): %w", in.X, in.Y, err)
		}
		out[i] = c
	}

	return out, nil
}

// EvaluateScore returns the CHSH quantity Σ (-1)^(x·y) C(x, y).
func EvaluateScore(s ScenarioSettings) (float64, error) {
	correlators, err := Correlators(s)
	if err != nil {
		return 0, err
	}

	var score float64
	for i, in := range Inputs {
		score += CHSHSign(in.X, in.Y) * correlators[i]
	}

	return score, nil
}

// EvaluateCost returns the negated CHSH score, so minimizing cost maximizes the score.
func EvaluateCost(s ScenarioSettings) (float64, error) {
	score, err := EvaluateScore(s)
	if err != nil {
		return 0, err
	}

	return -score, nil
}
