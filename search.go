package qchsh

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/theapemachine/errnie"
	"gonum.org/v1/gonum/stat"
)

// restartCircuit is the breaker shared by every restart of a search.
const restartCircuit = "restarts"

// SearchResult summarizes a multi-restart search.
type SearchResult struct {
	Best        OptimizationResult
	BestRestart int

	// Scores holds the max score of every restart that completed, in restart order,
	// and Restarts the index of the restart each score belongs to.
	Scores   []float64
	Restarts []int

	Mean     float64
	StdDev   float64
	Failures map[int]error

	// Metrics is the pool's ExportMetrics snapshot taken once every restart is in.
	Metrics map[string]interface{}
}

// SearchOption configures Search.
type SearchOption func(*searchOptions)

type searchOptions struct {
	stream  *BroadcastGroup
	initial func(restart int) ScenarioSettings
}

// WithRecordStream publishes every training record of every restart to bg.
func WithRecordStream(bg *BroadcastGroup) SearchOption {
	return func(o *searchOptions) {
		o.stream = bg
	}
}

// WithInitialSettings overrides the random starting point of each restart.
func WithInitialSettings(fn func(restart int) ScenarioSettings) SearchOption {
	return func(o *searchOptions) {
		o.initial = fn
	}
}

// RestartSettings returns the random starting point of the given restart.
// Restart k of a search seeded with s always starts from the same settings.
func RestartSettings(seed uint64, restart int) ScenarioSettings {
	return RandomSettings(rand.NewPCG(seed, uint64(restart)))
}

/*
Search runs cfg.Restarts independent optimizations from different starting points
concurrently and keeps the best one.

Each restart is an ordinary sequential Optimize call; only the restarts run in
parallel, on cfg.Workers workers. The best restart is the one with the highest max
score, the lowest restart index winning a tie. Restarts that fail are reported in
Failures, and once cfg.MaxFailures of them have failed in a row the remaining ones
are refused. Search returns an error only if no restart completed.
*/
func Search(ctx context.Context, cfg *Config, opts ...SearchOption) (SearchResult, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return SearchResult{}, err
	}

	gradient, err := GradientByName(cfg.Gradient, cfg.FDStep)
	if err != nil {
		return SearchResult{}, err
	}

	o := &searchOptions{
		initial: func(restart int) ScenarioSettings {
			return RestartSettings(cfg.Seed, restart)
		},
	}
	for _, opt := range opts {
		opt(o)
	}

	pool := NewPool(ctx, cfg.Workers, cfg)
	defer pool.Close()

	results := make([]chan ResultValue, cfg.Restarts)
	for k := range results {
		restart := k
		initial := o.initial(restart)

		trainerOpts := []TrainerOption{
			WithGradient(gradient),
			WithLabel(fmt.Sprintf("restart %d", restart)),
		}
		if o.stream != nil {
			stream := o.stream
			trainerOpts = append(trainerOpts, WithObserver(func(rec TrainingRecord) {
				stream.Send(RecordEvent{Restart: restart, Record: rec})
			}))
		}

		results[k] = pool.Schedule(
			fmt.Sprintf("restart-%d", restart),
			func(jobCtx context.Context) (any, error) {
				runOpts := append(trainerOpts, WithContext(jobCtx))
				return Optimize(initial, cfg.StepSize, cfg.Steps, runOpts...)
			},
			WithCircuitBreaker(restartCircuit),
			WithTimeout(cfg.JobTimeout),
		)
	}

	out := SearchResult{BestRestart: -1, Failures: make(map[int]error)}

	for k, ch := range results {
		var rv ResultValue
		select {
		case <-ctx.Done():
			return out, fmt.Errorf("search cancelled: %w", ctx.Err())
		case rv = <-ch:
		}

		if rv.Error != nil {
			out.Failures[k] = rv.Error
			continue
		}

		res, ok := rv.Value.(OptimizationResult)
		if !ok {
			out.Failures[k] = fmt.Errorf("restart %d returned %T", k, rv.Value)
			continue
		}

		pool.Metrics().recordScore(res.MaxScore)
		out.Scores = append(out.Scores, res.MaxScore)
		out.Restarts = append(out.Restarts, k)

		if out.BestRestart < 0 || res.MaxScore > out.Best.MaxScore {
			out.Best = res
			out.BestRestart = k
		}
	}

	out.Metrics = pool.Metrics().ExportMetrics()

	if out.BestRestart < 0 {
		errs := make([]error, 0, len(out.Failures))
		for k := 0; k < cfg.Restarts; k++ {
			errs = append(errs, out.Failures[k])
		}
		return out, fmt.Errorf("all %d restarts failed: %w", cfg.Restarts, errors.Join(errs...))
	}

	out.Mean = stat.Mean(out.Scores, nil)
	if len(out.Scores) > 1 {
		out.StdDev = stat.StdDev(out.Scores, nil)
	}

	errnie.Info(
		"search finished - best score %.9f from restart %d, mean %.6f, stddev %.6f, %d failed",
		out.Best.MaxScore, out.BestRestart, out.Mean, out.StdDev, len(out.Failures),
	)

	return out, nil
}
