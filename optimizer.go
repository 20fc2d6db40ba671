package qchsh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

/*
GradientDescent performs fixed-step descent on EvaluateCost.

It keeps no state between calls: Step is a pure function of the settings it is
given, the step size, and the gradient method. The preparation angles and the
measurement table are updated by the same rule, angle ← angle − η·∂cost/∂angle.
*/
type GradientDescent struct {
	StepSize float64
	Gradient GradientFunc
}

// NewGradientDescent returns a descent optimizer using the parameter-shift gradient.
func NewGradientDescent(stepSize float64) (*GradientDescent, error) {
	gd := &GradientDescent{StepSize: stepSize, Gradient: ParameterShift}
	if err := gd.validate(); err != nil {
		return nil, err
	}

	return gd, nil
}

func (gd *GradientDescent) validate() error {
	if math.IsNaN(gd.StepSize) || math.IsInf(gd.StepSize, 0) || gd.StepSize <= 0 {
		return fmt.Errorf("%v: %w", gd.StepSize, ErrInvalidStepSize)
	}

	return nil
}

// Step returns the settings after one descent update.
func (gd *GradientDescent) Step(s ScenarioSettings) (ScenarioSettings, error) {
	if err := gd.validate(); err != nil {
		return s, err
	}

	gradient := gd.Gradient
	if gradient == nil {
		gradient = ParameterShift
	}

	g, err := gradient(s)
	if err != nil {
		return s, fmt.Errorf("gradient: %w", err)
	}

	grad := g.Vector()
	if !isFinite(grad) {
		return s, fmt.Errorf("gradient %v: %w", grad, ErrNonFiniteValue)
	}

	v := s.Vector()
	floats.AddScaled(v, -gd.StepSize, grad)

	if !isFinite(v) {
		return s, fmt.Errorf("updated settings %v: %w", v, ErrNonFiniteValue)
	}

	return SettingsFromVector(v)
}
