package qchsh

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidShape is returned when angles do not fit the 2 + 2x2 settings layout.
	ErrInvalidShape = errors.New("settings must hold 2 preparation and 2x2 measurement angles")

	// ErrNonFiniteValue is returned when a simulation, cost or gradient produces NaN or Inf.
	ErrNonFiniteValue = errors.New("non-finite value")

	// ErrInvalidStepSize is returned for step sizes that are not finite and positive.
	ErrInvalidStepSize = errors.New("step size must be finite and positive")

	// ErrInvalidStepCount is returned for a negative number of optimization steps.
	ErrInvalidStepCount = errors.New("step count must not be negative")

	// ErrTrainerState is returned when a trainer is run more than once.
	ErrTrainerState = errors.New("trainer has already been started")

	// ErrCircuitOpen is returned for restarts refused after too many failures.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

/*
NonFiniteError reports the step at which an optimization run produced a
non-finite value, together with the last record that was still valid.
HasRecord is false when the run failed before any record was collected.
*/
type NonFiniteError struct {
	Step       int
	LastRecord TrainingRecord
	HasRecord  bool
	Err        error
}

func (e *NonFiniteError) Error() string {
	if e.HasRecord {
		return fmt.Sprintf(
			"step %d: %v (last valid record: step %d, score %g)",
			e.Step, e.Err, e.LastRecord.Step, e.LastRecord.Score,
		)
	}

	return fmt.Sprintf("step %d: %v (no valid record)", e.Step, e.Err)
}

func (e *NonFiniteError) Unwrap() error {
	return e.Err
}
