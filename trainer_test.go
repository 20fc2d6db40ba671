package qchsh

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/davecgh/go-spew/spew"
	. "github.com/smartystreets/goconvey/convey"
)

// nearOptimal perturbs every optimal angle by a few hundredths of a radian.
func nearOptimal() ScenarioSettings {
	s := optimalSettings()
	s.Preparation[0] += 0.05
	s.Preparation[1] -= 0.04
	s.Measurement[0][0] += 0.03
	s.Measurement[0][1] -= 0.05
	s.Measurement[1][0] += 0.02
	s.Measurement[1][1] -= 0.03
	return s
}

func zeroGradient(ScenarioSettings) (Gradient, error) {
	return Gradient{}, nil
}

func TestOptimize(t *testing.T) {
	Convey("Given settings near the Bell-state optimum", t, func() {
		initial := nearOptimal()
		result, err := Optimize(initial, 0.5, 20)
		So(err, ShouldBeNil)

		Convey("It converges to the quantum bound", func() {
			So(result.MaxScore, ShouldAlmostEqual, QuantumBound, 1e-3)
			So(result.MaxScore, ShouldBeLessThanOrEqualTo, QuantumBound+1e-12)
		})

		Convey("It collects one record per step plus the final one", func() {
			So(len(result.Records), ShouldEqual, 21)
			for i, rec := range result.Records {
				So(rec.Step, ShouldEqual, i)
			}
		})

		Convey("Records hold the score, which is the negated cost", func() {
			cost, err := EvaluateCost(initial)
			So(err, ShouldBeNil)

			So(result.Records[0].Settings, ShouldResemble, initial)
			So(result.Records[0].Score, ShouldEqual, -cost)
			So(result.Records[0].Score, ShouldBeGreaterThan, ClassicalBound)
		})

		Convey("The optimum is the record it points at", func() {
			best := result.Records[result.MaxIndex]
			So(best.Score, ShouldEqual, result.MaxScore)
			So(best.Settings, ShouldResemble, result.OptimalSettings)

			for _, rec := range result.Records {
				So(rec.Score, ShouldBeLessThanOrEqualTo, result.MaxScore)
			}
		})

		Convey("Steps and Scores expose parallel sequences", func() {
			steps, scores := result.Steps(), result.Scores()
			So(len(steps), ShouldEqual, len(scores))
			So(steps[20], ShouldEqual, 20)
			So(scores[20], ShouldEqual, result.Records[20].Score)
		})
	})

	Convey("Given the same inputs twice", t, func() {
		initial := RandomSettings(rand.NewPCG(4, 4))

		a, err := Optimize(initial, 0.3, 10)
		So(err, ShouldBeNil)
		b, err := Optimize(initial, 0.3, 10)
		So(err, ShouldBeNil)

		Convey("The runs are identical", func() {
			So(a, ShouldResemble, b)
		})
	})

	Convey("Given zero steps", t, func() {
		initial := nearOptimal()
		result, err := Optimize(initial, 0.5, 0)
		So(err, ShouldBeNil)

		Convey("Only the initial record is collected", func() {
			So(len(result.Records), ShouldEqual, 1)
			So(result.MaxIndex, ShouldEqual, 0)
			So(result.OptimalSettings, ShouldResemble, initial)
		})
	})

	Convey("Given a gradient that never moves the settings", t, func() {
		result, err := Optimize(nearOptimal(), 0.5, 5, WithGradient(zeroGradient))
		So(err, ShouldBeNil)

		Convey("Every score ties and the first record wins", func() {
			for _, rec := range result.Records {
				So(rec.Score, ShouldEqual, result.Records[0].Score)
			}
			So(result.MaxIndex, ShouldEqual, 0)
		})
	})

	Convey("Given an invalid step size or step count", t, func() {
		Convey("A non-positive step size is rejected before the loop", func() {
			_, err := Optimize(nearOptimal(), 0, 10)
			So(errors.Is(err, ErrInvalidStepSize), ShouldBeTrue)
		})

		Convey("A negative step count is rejected before the loop", func() {
			_, err := Optimize(nearOptimal(), 0.1, -1)
			So(errors.Is(err, ErrInvalidStepCount), ShouldBeTrue)
		})
	})
}

func TestTrainer(t *testing.T) {
	Convey("Given a new trainer", t, func() {
		var observed []TrainingRecord
		trainer, err := NewTrainer(nearOptimal(), 0.5, 3, WithObserver(func(rec TrainingRecord) {
			observed = append(observed, rec)
		}))
		So(err, ShouldBeNil)

		Convey("It starts as not started", func() {
			So(trainer.State(), ShouldEqual, NotStarted)
		})

		Convey("When it runs to completion", func() {
			result, err := trainer.Run()
			So(err, ShouldBeNil)

			Convey("It is completed", func() {
				So(trainer.State(), ShouldEqual, Completed)
			})

			Convey("The observer saw every record in order", func() {
				So(observed, ShouldResemble, result.Records)
			})

			Convey("It cannot run again", func() {
				_, err := trainer.Run()
				So(errors.Is(err, ErrTrainerState), ShouldBeTrue)
			})
		})
	})

	Convey("Given initial settings holding a NaN", t, func() {
		initial := nearOptimal()
		initial.Preparation[0] = math.NaN()

		trainer, err := NewTrainer(initial, 0.5, 10)
		So(err, ShouldBeNil)

		_, err = trainer.Run()

		Convey("The run fails at step 0 without a valid record", func() {
			var nfe *NonFiniteError
			So(errors.As(err, &nfe), ShouldBeTrue)
			So(errors.Is(err, ErrNonFiniteValue), ShouldBeTrue)
			So(nfe.Step, ShouldEqual, 0)
			So(nfe.HasRecord, ShouldBeFalse)
			So(trainer.State(), ShouldEqual, Failed)
		})
	})

	Convey("Given a context cancelled partway through the run", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var observed []TrainingRecord
		trainer, err := NewTrainer(nearOptimal(), 0.5, 10,
			WithContext(ctx),
			WithObserver(func(rec TrainingRecord) {
				observed = append(observed, rec)
				if rec.Step == 2 {
					cancel()
				}
			}),
		)
		So(err, ShouldBeNil)

		_, err = trainer.Run()

		Convey("The run stops before the next step and fails", func() {
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(errors.Is(err, ErrNonFiniteValue), ShouldBeFalse)
			So(trainer.State(), ShouldEqual, Failed)
			So(len(observed), ShouldEqual, 3)
		})
	})

	Convey("Given an already cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		_, err := Optimize(nearOptimal(), 0.5, 10, WithContext(ctx), WithObserver(func(TrainingRecord) {
			calls++
		}))

		Convey("No record is collected", func() {
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(calls, ShouldEqual, 0)
		})
	})

	Convey("Given a gradient that diverges on its third call", t, func() {
		calls := 0
		diverging := func(s ScenarioSettings) (Gradient, error) {
			calls++
			if calls == 3 {
				g := Gradient{}
				g.Preparation[0] = math.NaN()
				return g, nil
			}
			return ParameterShift(s)
		}

		_, err := Optimize(nearOptimal(), 0.5, 10, WithGradient(diverging))

		Convey("The run aborts at that step and reports the last valid record", func() {
			var nfe *NonFiniteError
			So(errors.As(err, &nfe), ShouldBeTrue)
			So(nfe.Step, ShouldEqual, 2)
			So(nfe.HasRecord, ShouldBeTrue)
			So(nfe.LastRecord.Step, ShouldEqual, 2)

			if nfe.LastRecord.Score <= ClassicalBound {
				spew.Dump(nfe.LastRecord)
			}
			So(nfe.LastRecord.Score, ShouldBeGreaterThan, ClassicalBound)
			So(calls, ShouldEqual, 3)
		})
	})
}

func TestBestRecord(t *testing.T) {
	Convey("Given a sequence of records", t, func() {
		records := []TrainingRecord{
			{Step: 0, Score: 1.5},
			{Step: 1, Score: 2.5},
			{Step: 2, Score: 2.1},
			{Step: 3, Score: 2.5},
		}

		Convey("The first maximum wins", func() {
			best, ok := BestRecord(records)
			So(ok, ShouldBeTrue)
			So(best.Step, ShouldEqual, 1)
		})

		Convey("An empty sequence has no best record", func() {
			_, ok := BestRecord(nil)
			So(ok, ShouldBeFalse)
		})
	})
}
