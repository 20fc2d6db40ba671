package qchsh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
)

// Gradient holds ∂cost/∂angle for every angle of a ScenarioSettings, in the same layout.
type Gradient ScenarioSettings

// Vector flattens the gradient in ScenarioSettings.Vector order.
func (g Gradient) Vector() []float64 {
	return ScenarioSettings(g).Vector()
}

// GradientFunc computes the gradient of EvaluateCost at the given settings.
type GradientFunc func(ScenarioSettings) (Gradient, error)

// Names accepted by GradientByName.
const (
	GradientShift      = "shift"
	GradientClosedForm = "closed"
	GradientFiniteDiff = "fd"
)

// DefaultFDStep is the central-difference step used when none is configured.
const DefaultFDStep = 1e-6

// GradientByName resolves a configured gradient method.
func GradientByName(name string, fdStep float64) (GradientFunc, error) {
	switch name {
	case GradientShift, "":
		return ParameterShift, nil
	case GradientClosedForm:
		return ClosedForm, nil
	case GradientFiniteDiff:
		return FiniteDifference(fdStep), nil
	default:
		return nil, fmt.Errorf("unknown gradient method %q", name)
	}
}

/*
ParameterShift differentiates the cost exactly by evaluating it at shifted angles.

Every angle enters each correlator through a single rotation, so the cost is a
first-order trigonometric polynomial in each angle taken separately. For such a
function f, f'(φ) = (f(φ+π/2) − f(φ−π/2)) / 2 holds exactly, and both terms are
computed by the statevector simulator.
*/
func ParameterShift(s ScenarioSettings) (Gradient, error) {
	v := s.Vector()
	grad := make([]float64, len(v))

	for i := range v {
		plus, err := shiftedCost(v, i, math.Pi/2)
		if err != nil {
			return Gradient{}, err
		}

		minus, err := shiftedCost(v, i, -math.Pi/2)
		if err != nil {
			return Gradient{}, err
		}

		grad[i] = (plus - minus) / 2
	}

	return gradientFromVector(grad)
}

func shiftedCost(v []float64, i int, shift float64) (float64, error) {
	shifted := make([]float64, len(v))
	copy(shifted, v)
	shifted[i] += shift

	s, err := SettingsFromVector(shifted)
	if err != nil {
		return 0, err
	}

	return EvaluateCost(s)
}

// ClosedForm differentiates the analytic correlator and chains it through the CHSH sum.
func ClosedForm(s ScenarioSettings) (Gradient, error) {
	if !s.IsFinite() {
		return Gradient{}, fmt.Errorf("settings %v: %w", s, ErrNonFiniteValue)
	}

	var g Gradient

	for _, in := range Inputs {
		weight := -CHSHSign(in.X, in.Y)
		partials := correlatorPartials(s.Params(in.X, in.Y))

		g.Preparation[0] += weight * partials[0]
		g.Preparation[1] += weight * partials[1]
		g.Measurement[0][in.X] += weight * partials[2]
		g.Measurement[1][in.Y] += weight * partials[3]
	}

	return g, nil
}

// FiniteDifference returns a central-difference gradient with the given step.
// It is less precise than the analytic methods and exists to cross-check them.
func FiniteDifference(step float64) GradientFunc {
	if step <= 0 {
		step = DefaultFDStep
	}

	return func(s ScenarioSettings) (Gradient, error) {
		var evalErr error

		cost := func(v []float64) float64 {
			settings, err := SettingsFromVector(v)
			if err == nil {
				var c float64
				if c, err = EvaluateCost(settings); err == nil {
					return c
				}
			}

			if evalErr == nil {
				evalErr = err
			}
			return math.NaN()
		}

		grad := fd.Gradient(nil, cost, s.Vector(), &fd.Settings{
			Formula: fd.Central,
			Step:    step,
		})

		if evalErr != nil {
			return Gradient{}, evalErr
		}

		return gradientFromVector(grad)
	}
}

func gradientFromVector(v []float64) (Gradient, error) {
	s, err := SettingsFromVector(v)
	if err != nil {
		return Gradient{}, err
	}

	return Gradient(s), nil
}
