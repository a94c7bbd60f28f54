package config

import (
	"fmt"

	"github.com/rileyhilliard/nvglance/internal/errors"
	"github.com/rileyhilliard/nvglance/internal/scheduler"
)

// MaxHistorySize caps the samples kept per series.
const MaxHistorySize = 3600

// Validate checks cfg and returns a structured error for the first problem.
func Validate(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	if cfg.Interval < scheduler.MinInterval || cfg.Interval > scheduler.MaxInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Refresh interval %s is out of range", cfg.Interval),
			fmt.Sprintf("Pick something between %s and %s.", scheduler.MinInterval, scheduler.MaxInterval))
	}

	if cfg.HistorySize <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("History size must be positive, got %d", cfg.HistorySize),
			"Use a whole number of samples, like 60 or 120.")
	}
	if cfg.HistorySize > MaxHistorySize {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("History size %d is too large", cfg.HistorySize),
			fmt.Sprintf("Keep it at or below %d samples.", MaxHistorySize))
	}

	return nil
}
