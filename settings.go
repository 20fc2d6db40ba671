package qchsh

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// settingsLen is the number of angles in a flattened ScenarioSettings.
const settingsLen = 6

/*
ScenarioSettings holds every angle of a CHSH scenario: the two preparation
rotations and a measurement table where row 0 holds party A's angle for each of
its inputs and row 1 holds party B's.

Angles are periodic but never wrapped. Settings are passed by value; each
optimization step produces a new one.
*/
type ScenarioSettings struct {
	Preparation [2]float64
	Measurement [2][2]float64
}

// NewSettings builds settings from slices, checking the 2 + 2x2 layout.
func NewSettings(preparation []float64, measurement [][]float64) (ScenarioSettings, error) {
	var s ScenarioSettings

	if len(preparation) != 2 {
		return s, fmt.Errorf("preparation has %d angles: %w", len(preparation), ErrInvalidShape)
	}

	if len(measurement) != 2 {
		return s, fmt.Errorf("measurement has %d rows: %w", len(measurement), ErrInvalidShape)
	}

	copy(s.Preparation[:], preparation)

	for party, row := range measurement {
		if len(row) != 2 {
			return ScenarioSettings{}, fmt.Errorf(
				"measurement row %d has %d angles: %w", party, len(row), ErrInvalidShape,
			)
		}
		copy(s.Measurement[party][:], row)
	}

	return s, nil
}

// SettingsFromVector is the inverse of Vector.
func SettingsFromVector(v []float64) (ScenarioSettings, error) {
	if len(v) != settingsLen {
		return ScenarioSettings{}, fmt.Errorf("vector has %d angles: %w", len(v), ErrInvalidShape)
	}

	return ScenarioSettings{
		Preparation: [2]float64{v[0], v[1]},
		Measurement: [2][2]float64{{v[2], v[3]}, {v[4], v[5]}},
	}, nil
}

// RandomSettings draws all six angles independently from Uniform[0, 2π).
func RandomSettings(src rand.Source) ScenarioSettings {
	uniform := distuv.Uniform{Min: 0, Max: 2 * math.Pi, Src: src}

	v := make([]float64, settingsLen)
	for i := range v {
		v[i] = uniform.Rand()
	}

	// The length is fixed above, so the shape cannot be wrong.
	s, _ := SettingsFromVector(v)
	return s
}

// Vector flattens the settings as θ0, θ1, A's angles for x=0,1, B's angles for y=0,1.
func (s ScenarioSettings) Vector() []float64 {
	return []float64{
		s.Preparation[0], s.Preparation[1],
		s.Measurement[0][0], s.Measurement[0][1],
		s.Measurement[1][0], s.Measurement[1][1],
	}
}

// Params selects the circuit angles for the input pair (x, y).
func (s ScenarioSettings) Params(x, y int) CircuitParameters {
	return CircuitParameters{
		s.Preparation[0],
		s.Preparation[1],
		s.Measurement[0][x],
		s.Measurement[1][y],
	}
}

// IsFinite reports whether no angle is NaN or infinite.
func (s ScenarioSettings) IsFinite() bool {
	return isFinite(s.Vector())
}

func isFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}

	return true
}

func (s ScenarioSettings) String() string {
	return fmt.Sprintf(
		"prep=[%.6f %.6f] meas=[[%.6f %.6f] [%.6f %.6f]]",
		s.Preparation[0], s.Preparation[1],
		s.Measurement[0][0], s.Measurement[0][1],
		s.Measurement[1][0], s.Measurement[1][1],
	)
}
