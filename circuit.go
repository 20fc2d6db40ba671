package qchsh

// CircuitParameters are the four angles of the ansatz: the preparation rotations
// of qubits A and B followed by their measurement-basis rotations.
type CircuitParameters [4]float64

// Layers returns the ansatz gates in application order.
func (p CircuitParameters) Layers() []Gate {
	return []Gate{
		RotationA(p[0]),
		RotationB(p[1]),
		CNOT(),
		RotationA(p[2]),
		RotationB(p[3]),
	}
}

// Unitary returns the whole ansatz as a single matrix.
func (p CircuitParameters) Unitary() Gate {
	layers := p.Layers()
	u := layers[0]

	for _, g := range layers[1:] {
		u = g.Mul(u)
	}

	return u
}

// Simulate runs the ansatz on |00⟩, applying each layer to the state in turn.
func Simulate(p CircuitParameters) QuantumState {
	state := ZeroState()

	for _, g := range p.Layers() {
		state = state.Apply(g)
	}

	return state
}
