package qchsh

import (
	"fmt"
	"math"
)

// paritySign is +1 for the matching outcomes 00 and 11, -1 for 01 and 10.
var paritySign = [4]float64{1, -1, -1, 1}

// Parity returns the expectation of the two-qubit parity observable.
func Parity(qs QuantumState) float64 {
	var expectation float64

	for i, prob := range qs.Probabilities() {
		expectation += paritySign[i] * prob
	}

	return expectation
}

// EvaluateCorrelator simulates the ansatz for p and returns its parity correlator.
func EvaluateCorrelator(p CircuitParameters) (float64, error) {
	for i, angle := range p {
		if math.IsNaN(angle) || math.IsInf(angle, 0) {
			return 0, fmt.Errorf("circuit parameter %d is %v: %w", i, angle, ErrNonFiniteValue)
		}
	}

	state := Simulate(p)
	if !state.IsFinite() {
		return 0, fmt.Errorf("simulated state %v: %w", state, ErrNonFiniteValue)
	}

	return Parity(state), nil
}

/*
CorrelatorClosedForm evaluates the correlator of the ansatz analytically.

With qubit A prepared at θ0, qubit B at θ1, the controlled flip, and the
measurement rotations θ2 and θ3, the parity expectation reduces to

	cos θ1 cos θ2 cos θ3 − cos θ0 sin θ1 cos θ2 sin θ3 + sin θ0 sin θ2 sin θ3

Simulate and Parity must agree with it to floating-point precision.
*/
func CorrelatorClosedForm(p CircuitParameters) float64 {
	s0, c0 := math.Sincos(p[0])
	s1, c1 := math.Sincos(p[1])
	s2, c2 := math.Sincos(p[2])
	s3, c3 := math.Sincos(p[3])

	return c1*c2*c3 - c0*s1*c2*s3 + s0*s2*s3
}

// correlatorPartials returns the derivative of CorrelatorClosedForm with
// respect to each of the four circuit parameters.
func correlatorPartials(p CircuitParameters) [4]float64 {
	s0, c0 := math.Sincos(p[0])
	s1, c1 := math.Sincos(p[1])
	s2, c2 := math.Sincos(p[2])
	s3, c3 := math.Sincos(p[3])

	return [4]float64{
		s0*s1*c2*s3 + c0*s2*s3,
		-s1*c2*c3 - c0*c1*c2*s3,
		-c1*s2*c3 + c0*s1*s2*s3 + s0*c2*s3,
		-c1*c2*s3 - c0*s1*c2*c3 + s0*s2*c3,
	}
}
