package watlowf4t

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-chamber/logger"
)

// Default settle delays. The controller needs time to leave a running program
// before it accepts the next command.
const (
	DefaultTerminateSettle = 500 * time.Millisecond
	DefaultAdvanceSettle   = time.Second
	DefaultRestartSettle   = 2 * time.Second

	MaxSettle = 10 * time.Second
)

type driverConfig struct {
	// terminateSettle follows a program termination before constant mode starts.
	terminateSettle time.Duration
	// advanceSettle separates constant start from the restart at the next step.
	advanceSettle time.Duration
	// restartSettle follows a program termination before a new program starts.
	restartSettle time.Duration
	logger        logger.Logger
}

func defaultDriverConfig() *driverConfig {
	return &driverConfig{
		terminateSettle: DefaultTerminateSettle,
		advanceSettle:   DefaultAdvanceSettle,
		restartSettle:   DefaultRestartSettle,
		logger:          logger.GetLogger(),
	}
}

// Option is a functional option for configuring a Driver.
type Option interface {
	apply(*driverConfig) error
}

type optFunc func(*driverConfig) error

func (f optFunc) apply(cfg *driverConfig) error { return f(cfg) }

// WithSettleDelays overrides the settle delays used by operation changes.
func WithSettleDelays(terminate, advance, restart time.Duration) Option {
	return optFunc(func(cfg *driverConfig) error {
		for _, d := range []time.Duration{terminate, advance, restart} {
			if d < 0 || d > MaxSettle {
				return fmt.Errorf("watlowf4t: settle delay %v out of range [0, %v]", d, MaxSettle)
			}
		}
		cfg.terminateSettle, cfg.advanceSettle, cfg.restartSettle = terminate, advance, restart

		return nil
	})
}

// WithLogger sets the driver logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *driverConfig) error {
		if l == nil {
			return errors.New("watlowf4t: logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
