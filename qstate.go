package qchsh

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
)

// BasisLabels names the amplitudes of a QuantumState in index order.
var BasisLabels = [4]string{"00", "01", "10", "11"}

/*
QuantumState is the joint state of two qubits, stored as four complex amplitudes
indexed by the basis labels 00, 01, 10 and 11. Qubit A is the high bit.

A QuantumState is a value. Apply never modifies its receiver, so a state can be
shared freely once constructed.
*/
type QuantumState struct {
	Amplitudes [4]complex128
}

// ZeroState returns |00⟩.
func ZeroState() QuantumState {
	return QuantumState{Amplitudes: [4]complex128{1, 0, 0, 0}}
}

// Apply returns g·ψ.
func (qs QuantumState) Apply(g Gate) QuantumState {
	var out QuantumState

	for i := 0; i < 4; i++ {
		var sum complex128
		for j := 0; j < 4; j++ {
			sum += g[i][j] * qs.Amplitudes[j]
		}
		out.Amplitudes[i] = sum
	}

	return out
}

// Probabilities returns the squared magnitude of every amplitude.
func (qs QuantumState) Probabilities() [4]float64 {
	var probs [4]float64

	for i, amplitude := range qs.Amplitudes {
		prob := cmplx.Abs(amplitude)
		probs[i] = prob * prob
	}

	return probs
}

// Norm returns the Euclidean length of the amplitude vector.
func (qs QuantumState) Norm() float64 {
	var total float64
	for _, prob := range qs.Probabilities() {
		total += prob
	}

	return math.Sqrt(total)
}

// IsFinite reports whether every amplitude has finite real and imaginary parts.
func (qs QuantumState) IsFinite() bool {
	for _, amplitude := range qs.Amplitudes {
		if cmplx.IsNaN(amplitude) || cmplx.IsInf(amplitude) {
			return false
		}
	}

	return true
}

// String lists the amplitudes by basis label, e.g. "0.7071|00⟩ + 0.7071|11⟩".
// Zero amplitudes are left out.
func (qs QuantumState) String() string {
	var terms []string

	for i, amplitude := range qs.Amplitudes {
		if amplitude == 0 {
			continue
		}

		coeff := fmt.Sprintf("%.4g", real(amplitude))
		if imag(amplitude) != 0 {
			coeff = fmt.Sprintf("(%.4g%+.4gi)", real(amplitude), imag(amplitude))
		}
		terms = append(terms, coeff+"|"+BasisLabels[i]+"⟩")
	}

	if len(terms) == 0 {
		return "0"
	}

	return strings.Join(terms, " + ")
}
