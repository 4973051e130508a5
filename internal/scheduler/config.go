package scheduler

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-bot/pkg/errors"
)

// TradingConfig selects the tick cadence. Set either Interval, for a fixed cadence,
// or MinInterval and MaxInterval, for a delay drawn uniformly per tick.
type TradingConfig struct {
	Interval    time.Duration `yaml:"interval" json:"interval,omitempty" jsonschema:"title=Interval,description=Fixed delay between ticks" validate:"gte=0"`
	MinInterval time.Duration `yaml:"min_interval" json:"min_interval,omitempty" jsonschema:"title=Min Interval,description=Lower bound of a random delay between ticks" validate:"gte=0"`
	MaxInterval time.Duration `yaml:"max_interval" json:"max_interval,omitempty" jsonschema:"title=Max Interval,description=Upper bound of a random delay between ticks" validate:"gte=0"`
	// MaxRuns stops the scheduler after that many strategy invocations. Zero means no limit.
	MaxRuns int `yaml:"max_runs" json:"max_runs,omitempty" jsonschema:"title=Max Runs,description=Stop after this many strategy runs (0 = unlimited)" validate:"gte=0"`
}

// StopOptions controls StopTrading.
type StopOptions struct {
	// Cancel cancels all open orders before the timer is halted.
	Cancel bool
}

// Random reports whether the config draws a random delay per tick.
func (c TradingConfig) Random() bool {
	return c.MinInterval > 0 || c.MaxInterval > 0
}

// Validate validates the TradingConfig struct.
func (c TradingConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInterval, "invalid trading config", err)
	}

	switch {
	case c.Interval > 0 && c.Random():
		return errors.New(errors.ErrCodeInvalidInterval, "interval and min/max interval are mutually exclusive")
	case c.Interval > 0:
		return nil
	case !c.Random():
		return errors.New(errors.ErrCodeInvalidInterval, "either interval or min/max interval is required")
	case c.MinInterval <= 0:
		return errors.New(errors.ErrCodeInvalidInterval, "min interval must be positive")
	case c.MaxInterval < c.MinInterval:
		return errors.Newf(errors.ErrCodeInvalidInterval, "max interval %s is below min interval %s", c.MaxInterval, c.MinInterval)
	}

	return nil
}
