package qchsh

import (
	"context"
	"time"
)

// Job is a unit of work for the pool, typically one optimization restart.
type Job struct {
	ID        string
	Fn        func(ctx context.Context) (any, error)
	CircuitID string
	TTL       time.Duration
	Timeout   time.Duration
	StartTime time.Time
}

// JobOption is a function type for configuring jobs
type JobOption func(*Job)

// WithTTL configures how long the job's result stays in the result space
func WithTTL(ttl time.Duration) JobOption {
	return func(j *Job) {
		j.TTL = ttl
	}
}

// WithTimeout bounds the time a worker waits for the job
func WithTimeout(timeout time.Duration) JobOption {
	return func(j *Job) {
		j.Timeout = timeout
	}
}

// WithCircuitBreaker routes the job's outcome through the named breaker
func WithCircuitBreaker(id string) JobOption {
	return func(j *Job) {
		j.CircuitID = id
	}
}
