package qchsh

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/pflag"
)

func TestConfigValidate(t *testing.T) {
	Convey("Given the default config", t, func() {
		cfg := NewConfig()

		Convey("It is valid", func() {
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("A bad step size is reported", func() {
			cfg.StepSize = math.NaN()
			So(errors.Is(cfg.Validate(), ErrInvalidStepSize), ShouldBeTrue)
		})

		Convey("A negative step count is reported", func() {
			cfg.Steps = -3
			So(errors.Is(cfg.Validate(), ErrInvalidStepCount), ShouldBeTrue)
		})

		Convey("Every problem is reported at once", func() {
			cfg.StepSize = 0
			cfg.Restarts = 0
			cfg.Workers = 0
			cfg.Gradient = "newton"

			err := cfg.Validate()
			So(errors.Is(err, ErrInvalidStepSize), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "restarts")
			So(err.Error(), ShouldContainSubstring, "workers")
			So(err.Error(), ShouldContainSubstring, "newton")
		})

		Convey("An unset job timeout falls back to the default", func() {
			cfg.JobTimeout = 0
			So(cfg.getJobTimeout(), ShouldEqual, 30*time.Second)
		})
	})
}

func TestLoadConfig(t *testing.T) {
	Convey("Given no file and no flags", t, func() {
		cfg, err := LoadConfig("", nil)

		Convey("The defaults are used", func() {
			So(err, ShouldBeNil)
			So(cfg, ShouldResemble, NewConfig())
		})
	})

	Convey("Given a config file", t, func() {
		path := filepath.Join(t.TempDir(), "qchsh.yaml")
		So(os.WriteFile(path, []byte("step_size: 0.25\nrestarts: 3\njob_timeout: 2s\ngradient: closed\n"), 0o644), ShouldBeNil)

		cfg, err := LoadConfig(path, nil)
		So(err, ShouldBeNil)

		Convey("Its values override the defaults", func() {
			So(cfg.StepSize, ShouldEqual, 0.25)
			So(cfg.Restarts, ShouldEqual, 3)
			So(cfg.JobTimeout, ShouldEqual, 2*time.Second)
			So(cfg.Gradient, ShouldEqual, GradientClosedForm)
			So(cfg.Steps, ShouldEqual, NewConfig().Steps)
		})

		Convey("Flags override the file", func() {
			flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
			BindFlags(flags)
			So(flags.Parse([]string{"--restarts=5", "--step-size=0.1"}), ShouldBeNil)

			cfg, err := LoadConfig(path, flags)
			So(err, ShouldBeNil)
			So(cfg.Restarts, ShouldEqual, 5)
			So(cfg.StepSize, ShouldEqual, 0.1)
			So(cfg.Gradient, ShouldEqual, GradientClosedForm)
		})
	})

	Convey("Given environment variables", t, func() {
		t.Setenv("QCHSH_STEPS", "42")
		t.Setenv("QCHSH_FD_STEP", "0.001")

		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		BindFlags(flags)
		So(flags.Parse(nil), ShouldBeNil)

		cfg, err := LoadConfig("", flags)

		Convey("They override unset flags", func() {
			So(err, ShouldBeNil)
			So(cfg.Steps, ShouldEqual, 42)
			So(cfg.FDStep, ShouldEqual, 0.001)
		})
	})

	Convey("Given an invalid setting", t, func() {
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		BindFlags(flags)
		So(flags.Parse([]string{"--workers=0"}), ShouldBeNil)

		_, err := LoadConfig("", flags)

		Convey("Loading fails", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "workers")
		})
	})

	Convey("Given a missing config file", t, func() {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)

		Convey("Loading fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}
