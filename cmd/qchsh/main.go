package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
	"github.com/theapemachine/errnie"
	"github.com/theapemachine/qchsh"
)

func main() {
	flags := pflag.NewFlagSet("qchsh", pflag.ExitOnError)
	configPath := flags.String("config", "", "optional config file (yaml, toml or json)")
	qchsh.BindFlags(flags)
	_ = flags.Parse(os.Args[1:])

	if err := run(*configPath, flags); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, flags *pflag.FlagSet) error {
	cfg, err := qchsh.LoadConfig(configPath, flags)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := qchsh.Search(ctx, cfg)
	if err != nil {
		return err
	}

	best := result.Best
	errnie.Info(
		"best CHSH score %.9f (restart %d, step %d), gap to 2√2 %.3e",
		best.MaxScore, result.BestRestart, best.MaxIndex, qchsh.QuantumBound-best.MaxScore,
	)
	errnie.Info("optimal settings %s", best.OptimalSettings)

	errnie.Info(
		"pool: %v jobs, %v failed, %v refused, best score %v, p95 latency %vms",
		result.Metrics["job_count"], result.Metrics["failed_jobs"], result.Metrics["rejected_jobs"],
		result.Metrics["best_score"], result.Metrics["p95_latency"],
	)

	for k, failure := range result.Failures {
		errnie.Info("restart %d failed: %v", k, failure)
	}

	return nil
}
