package qchsh

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config controls a multi-restart search and the pool that runs it.
type Config struct {
	StepSize     float64       `mapstructure:"step_size"`
	Steps        int           `mapstructure:"steps"`
	Restarts     int           `mapstructure:"restarts"`
	Workers      int           `mapstructure:"workers"`
	Seed         uint64        `mapstructure:"seed"`
	Gradient     string        `mapstructure:"gradient"`
	FDStep       float64       `mapstructure:"fd_step"`
	JobTimeout   time.Duration `mapstructure:"job_timeout"`
	MaxFailures  int           `mapstructure:"max_failures"`
	BreakerReset time.Duration `mapstructure:"breaker_reset"`
}

func NewConfig() *Config {
	return &Config{
		StepSize:     0.4,
		Steps:        100,
		Restarts:     8,
		Workers:      4,
		Seed:         1,
		Gradient:     GradientShift,
		FDStep:       DefaultFDStep,
		JobTimeout:   30 * time.Second,
		MaxFailures:  3,
		BreakerReset: 5 * time.Second,
	}
}

// Validate rejects settings the search cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if math.IsNaN(c.StepSize) || math.IsInf(c.StepSize, 0) || c.StepSize <= 0 {
		errs = append(errs, fmt.Errorf("step_size %v: %w", c.StepSize, ErrInvalidStepSize))
	}

	if c.Steps < 0 {
		errs = append(errs, fmt.Errorf("steps %d: %w", c.Steps, ErrInvalidStepCount))
	}

	if c.Restarts < 1 {
		errs = append(errs, fmt.Errorf("restarts must be at least 1, got %d", c.Restarts))
	}

	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}

	if _, err := GradientByName(c.Gradient, c.FDStep); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// getJobTimeout falls back to the default when the configured timeout is unset.
func (c *Config) getJobTimeout() time.Duration {
	if c != nil && c.JobTimeout > 0 {
		return c.JobTimeout
	}
	return 30 * time.Second
}

// BindFlags registers the command-line flags understood by LoadConfig.
func BindFlags(flags *pflag.FlagSet) {
	d := NewConfig()

	flags.Float64("step-size", d.StepSize, "gradient descent step size")
	flags.Int("steps", d.Steps, "optimization steps per restart")
	flags.Int("restarts", d.Restarts, "number of random restarts")
	flags.Int("workers", d.Workers, "concurrent restarts")
	flags.Uint64("seed", d.Seed, "seed of the first restart")
	flags.String("gradient", d.Gradient, "gradient method: shift, closed or fd")
	flags.Float64("fd-step", d.FDStep, "finite-difference step")
	flags.Duration("job-timeout", d.JobTimeout, "time limit for one restart")
	flags.Int("max-failures", d.MaxFailures, "diverged restarts before new ones are refused")
	flags.Duration("breaker-reset", d.BreakerReset, "pause after too many diverged restarts")
}

/*
LoadConfig layers defaults, an optional config file, QCHSH_* environment
variables and command-line flags, in increasing order of precedence.

Flags are looked up by their dashed names (step-size) and map onto the
underscored config keys (step_size). Either path or flags may be empty.
*/
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	d := NewConfig()

	v.SetDefault("step_size", d.StepSize)
	v.SetDefault("steps", d.Steps)
	v.SetDefault("restarts", d.Restarts)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("gradient", d.Gradient)
	v.SetDefault("fd_step", d.FDStep)
	v.SetDefault("job_timeout", d.JobTimeout)
	v.SetDefault("max_failures", d.MaxFailures)
	v.SetDefault("breaker_reset", d.BreakerReset)

	v.SetEnvPrefix("qchsh")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})

		if bindErr != nil {
			return nil, bindErr
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
