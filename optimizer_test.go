package qchsh

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGradientDescent(t *testing.T) {
	Convey("Given a step size that is not finite and positive", t, func() {
		for _, eta := range []float64{0, -0.1, math.NaN(), math.Inf(1)} {
			_, err := NewGradientDescent(eta)
			So(errors.Is(err, ErrInvalidStepSize), ShouldBeTrue)
		}

		Convey("A zero-valued optimizer refuses to step", func() {
			gd := &GradientDescent{}
			_, err := gd.Step(optimalSettings())
			So(errors.Is(err, ErrInvalidStepSize), ShouldBeTrue)
		})
	})

	Convey("Given a small step from random settings", t, func() {
		rng := rand.New(rand.NewPCG(101, 103))
		gd, err := NewGradientDescent(0.02)
		So(err, ShouldBeNil)

		Convey("The cost does not increase", func() {
			for trial := 0; trial < 50; trial++ {
				s := RandomSettings(rng)
				before, _ := EvaluateCost(s)

				next, err := gd.Step(s)
				So(err, ShouldBeNil)

				after, _ := EvaluateCost(next)
				So(after, ShouldBeLessThanOrEqualTo, before+1e-12)
			}
		})

		Convey("Each angle moves by -η times its partial derivative", func() {
			s := RandomSettings(rng)
			g, err := ParameterShift(s)
			So(err, ShouldBeNil)

			next, err := gd.Step(s)
			So(err, ShouldBeNil)

			sv, gv, nv := s.Vector(), g.Vector(), next.Vector()
			for i := range sv {
				So(nv[i], ShouldAlmostEqual, sv[i]-0.02*gv[i], 1e-12)
			}
		})

		Convey("The input settings are left unchanged", func() {
			s := RandomSettings(rng)
			before := s

			_, err := gd.Step(s)
			So(err, ShouldBeNil)
			So(s, ShouldResemble, before)
		})
	})

	Convey("Given a gradient that returns a non-finite partial", t, func() {
		gd := &GradientDescent{
			StepSize: 0.1,
			Gradient: func(ScenarioSettings) (Gradient, error) {
				g := Gradient{}
				g.Measurement[1][1] = math.Inf(1)
				return g, nil
			},
		}

		Convey("The step fails with a non-finite value error", func() {
			_, err := gd.Step(optimalSettings())
			So(errors.Is(err, ErrNonFiniteValue), ShouldBeTrue)
		})
	})
}
