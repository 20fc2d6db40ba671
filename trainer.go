package qchsh

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/theapemachine/errnie"
)

// TrainerState is the lifecycle stage of a Trainer.
type TrainerState int

const (
	NotStarted TrainerState = iota
	Running
	Completed
	Failed
)

func (ts TrainerState) String() string {
	switch ts {
	case NotStarted:
		return "not-started"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("TrainerState(%d)", int(ts))
	}
}

// TrainingRecord is the score reached at one step and the settings that produced it.
// Score is the CHSH quantity, i.e. the negated cost.
type TrainingRecord struct {
	Step     int
	Score    float64
	Settings ScenarioSettings
}

// OptimizationResult is assembled once, after the training loop completes.
type OptimizationResult struct {
	MaxScore        float64
	OptimalSettings ScenarioSettings
	MaxIndex        int
	Records         []TrainingRecord
}

// Steps returns the step index of every record, parallel to Scores.
func (r OptimizationResult) Steps() []int {
	steps := make([]int, len(r.Records))
	for i, rec := range r.Records {
		steps[i] = rec.Step
	}

	return steps
}

// Scores returns the score of every record, parallel to Steps.
func (r OptimizationResult) Scores() []float64 {
	scores := make([]float64, len(r.Records))
	for i, rec := range r.Records {
		scores[i] = rec.Score
	}

	return scores
}

// BestRecord returns the record with the highest score. The earliest record wins a tie.
// ok is false for an empty sequence.
func BestRecord(records []TrainingRecord) (best TrainingRecord, ok bool) {
	for i, rec := range records {
		if i == 0 || rec.Score > best.Score {
			best = rec
		}
	}

	return best, len(records) > 0
}

// TrainerOption configures a Trainer.
type TrainerOption func(*Trainer)

// WithGradient replaces the parameter-shift gradient.
func WithGradient(fn GradientFunc) TrainerOption {
	return func(t *Trainer) {
		if fn != nil {
			t.optimizer.Gradient = fn
		}
	}
}

// WithObserver registers a callback that receives every record as it is collected.
func WithObserver(fn func(TrainingRecord)) TrainerOption {
	return func(t *Trainer) {
		t.observer = fn
	}
}

// WithContext stops the run before the next step once ctx is done.
func WithContext(ctx context.Context) TrainerOption {
	return func(t *Trainer) {
		if ctx != nil {
			t.ctx = ctx
		}
	}
}

// WithLabel prefixes the trainer's log lines, which keeps concurrent restarts apart.
func WithLabel(label string) TrainerOption {
	return func(t *Trainer) {
		t.label = label
	}
}

/*
Trainer drives a fixed number of gradient-descent steps from an initial setting.

It moves from NotStarted to Running when Run is called, and from Running to
Completed once every record has been collected. A non-finite score or gradient
moves it to Failed instead, as does a context passed with WithContext being done
before a step; nothing is retried.

For N steps the trainer collects N+1 records: before each update it records the
current step, and after the last update it records the final settings.
*/
type Trainer struct {
	mu        sync.Mutex
	state     TrainerState
	initial   ScenarioSettings
	numSteps  int
	optimizer *GradientDescent
	observer  func(TrainingRecord)
	label     string
	ctx       context.Context
}

// NewTrainer validates the step size and step count before any work is done.
func NewTrainer(initial ScenarioSettings, stepSize float64, numSteps int, opts ...TrainerOption) (*Trainer, error) {
	optimizer, err := NewGradientDescent(stepSize)
	if err != nil {
		return nil, err
	}

	if numSteps < 0 {
		return nil, fmt.Errorf("%d: %w", numSteps, ErrInvalidStepCount)
	}

	t := &Trainer{
		state:     NotStarted,
		initial:   initial,
		numSteps:  numSteps,
		optimizer: optimizer,
		label:     "train",
		ctx:       context.Background(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

// State returns the trainer's current lifecycle stage.
func (t *Trainer) State() TrainerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Trainer) setState(state TrainerState) {
	t.mu.Lock()
	t.state = state
	t.mu.Unlock()
}

// Run executes the loop. It may only be called once.
func (t *Trainer) Run() (OptimizationResult, error) {
	t.mu.Lock()
	if t.state != NotStarted {
		state := t.state
		t.mu.Unlock()
		return OptimizationResult{}, fmt.Errorf("trainer is %s: %w", state, ErrTrainerState)
	}
	t.state = Running
	t.mu.Unlock()

	records := make([]TrainingRecord, 0, t.numSteps+1)
	settings := t.initial

	for step := 0; step <= t.numSteps; step++ {
		if err := t.ctx.Err(); err != nil {
			return OptimizationResult{}, t.fail(step, records, fmt.Errorf("run stopped: %w", err))
		}

		rec, err := t.record(step, settings)
		if err != nil {
			return OptimizationResult{}, t.fail(step, records, err)
		}
		records = append(records, rec)

		if step == t.numSteps {
			break
		}

		if settings, err = t.optimizer.Step(settings); err != nil {
			return OptimizationResult{}, t.fail(step, records, err)
		}
	}

	best, _ := BestRecord(records)

	t.setState(Completed)
	errnie.Info(
		"%s completed - max score %.9f at step %d of %d",
		t.label, best.Score, best.Step, t.numSteps,
	)

	return OptimizationResult{
		MaxScore:        best.Score,
		OptimalSettings: best.Settings,
		MaxIndex:        best.Step,
		Records:         records,
	}, nil
}

func (t *Trainer) record(step int, settings ScenarioSettings) (TrainingRecord, error) {
	cost, err := EvaluateCost(settings)
	if err != nil {
		return TrainingRecord{}, err
	}

	rec := TrainingRecord{Step: step, Score: -cost, Settings: settings}
	errnie.Info("%s step %d - score %.9f, settings %s", t.label, step, rec.Score, settings)

	if t.observer != nil {
		t.observer(rec)
	}

	return rec, nil
}

func (t *Trainer) fail(step int, records []TrainingRecord, err error) error {
	t.setState(Failed)

	if !errors.Is(err, ErrNonFiniteValue) {
		return fmt.Errorf("step %d: %w", step, err)
	}

	nfe := &NonFiniteError{Step: step, Err: err}
	if len(records) > 0 {
		nfe.LastRecord = records[len(records)-1]
		nfe.HasRecord = true
	}

	errnie.Info("%s aborted - %v", t.label, nfe)
	return nfe
}

// Optimize runs a Trainer with the parameter-shift gradient and returns its result.
func Optimize(initial ScenarioSettings, stepSize float64, numSteps int, opts ...TrainerOption) (OptimizationResult, error) {
	t, err := NewTrainer(initial, stepSize, numSteps, opts...)
	if err != nil {
		return OptimizationResult{}, err
	}

	return t.Run()
}
