package qchsh

import "math"

// Gate is a unitary acting on the full two-qubit amplitude vector.
type Gate [4][4]complex128

// Rotation returns the real single-qubit rotation by theta.
//
//	R(θ) = [cos θ/2  -sin θ/2]
//	       [sin θ/2   cos θ/2]
func Rotation(theta float64) [2][2]complex128 {
	s, c := math.Sincos(theta / 2)

	return [2][2]complex128{
		{complex(c, 0), complex(-s, 0)},
		{complex(s, 0), complex(c, 0)},
	}
}

// RotationA rotates qubit A (the high bit) by theta, leaving qubit B alone.
func RotationA(theta float64) Gate {
	return kron(Rotation(theta), identity2())
}

// RotationB rotates qubit B (the low bit) by theta, leaving qubit A alone.
func RotationB(theta float64) Gate {
	return kron(identity2(), Rotation(theta))
}

// CNOT flips qubit B when qubit A is set, swapping the 10 and 11 amplitudes.
func CNOT() Gate {
	return Gate{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 0, 1},
		{0, 0, 1, 0},
	}
}

// Mul returns the product g·h, which applies h first.
func (g Gate) Mul(h Gate) Gate {
	var out Gate

	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum complex128
			for k := 0; k < 4; k++ {
				sum += g[i][k] * h[k][j]
			}
			out[i][j] = sum
		}
	}

	return out
}

func identity2() [2][2]complex128 {
	return [2][2]complex128{{1, 0}, {0, 1}}
}

// kron returns a⊗b with a acting on the high bit.
func kron(a, b [2][2]complex128) Gate {
	var out Gate

	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			for k := 0; k < 2; k++ {
				for l := 0; l < 2; l++ {
					out[2*i+k][2*j+l] = a[i][j] * b[k][l]
				}
			}
		}
	}

	return out
}
