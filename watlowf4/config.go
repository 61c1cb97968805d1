package watlowf4

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-chamber/logger"
)

// DefaultAdvanceSettle is the pause between leaving a program and restarting
// it at the next step.
const (
	DefaultAdvanceSettle = 2 * time.Second
	MaxSettle            = 10 * time.Second
)

type driverConfig struct {
	advanceSettle time.Duration
	logger        logger.Logger
}

func defaultDriverConfig() *driverConfig {
	return &driverConfig{
		advanceSettle: DefaultAdvanceSettle,
		logger:        logger.GetLogger(),
	}
}

// Option is a functional option for configuring a Driver.
type Option interface {
	apply(*driverConfig) error
}

type optFunc func(*driverConfig) error

func (f optFunc) apply(cfg *driverConfig) error { return f(cfg) }

// WithAdvanceSettle overrides the settle delay of a program step advance.
func WithAdvanceSettle(d time.Duration) Option {
	return optFunc(func(cfg *driverConfig) error {
		if d < 0 || d > MaxSettle {
			return fmt.Errorf("watlowf4: settle delay %v out of range [0, %v]", d, MaxSettle)
		}
		cfg.advanceSettle = d

		return nil
	})
}

// WithLogger sets the driver logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *driverConfig) error {
		if l == nil {
			return errors.New("watlowf4: logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
