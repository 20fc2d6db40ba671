package qchsh

import (
	"context"
	"fmt"

	"github.com/theapemachine/errnie"
)

// Worker processes jobs
type Worker struct {
	pool *Pool
	jobs chan Job
}

type jobOutcome struct {
	value any
	err   error
}

func (w *Worker) run() {
	ctx := w.pool.ctx

	for {
		// Offer ourselves to the manager, then wait for the job it hands over.
		select {
		case <-ctx.Done():
			return
		case w.pool.workers <- w.jobs:
		}

		select {
		case <-ctx.Done():
			return
		case job, ok := <-w.jobs:
			if !ok {
				return
			}
			value, err := w.processJob(ctx, job)
			w.pool.space.Store(job.ID, value, err, job.TTL)
		}
	}
}

func (w *Worker) processJob(ctx context.Context, job Job) (any, error) {
	// The breaker may have opened while the job sat in the queue.
	if breaker := w.pool.breaker(job.CircuitID); breaker != nil && breaker.Limit() {
		w.pool.metrics.recordRejection()
		return nil, fmt.Errorf("job %s refused: %w", job.ID, ErrCircuitOpen)
	}

	timeout := job.Timeout
	if timeout <= 0 {
		timeout = w.pool.config.getJobTimeout()
	}

	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Close waits for the job goroutine too, so a timed-out job cannot outlive the pool.
	done := make(chan jobOutcome, 1)
	w.pool.wg.Add(1)
	go func() {
		defer w.pool.wg.Done()
		value, err := job.Fn(jobCtx)
		done <- jobOutcome{value: value, err: err}
	}()

	var out jobOutcome
	select {
	case out = <-done:
	case <-jobCtx.Done():
		out.err = fmt.Errorf("job %s timed out after %v: %w", job.ID, timeout, jobCtx.Err())
	}

	w.pool.metrics.recordJobExecution(job.StartTime, out.err == nil)
	w.recordOutcome(job.CircuitID, out.err)

	if out.err != nil {
		errnie.Info("job %s failed: %v", job.ID, out.err)
		return nil, out.err
	}

	return out.value, nil
}

func (w *Worker) recordOutcome(circuitID string, err error) {
	breaker := w.pool.breaker(circuitID)
	if breaker == nil {
		return
	}

	if err != nil {
		breaker.RecordFailure()
		return
	}
	breaker.RecordSuccess()
}
