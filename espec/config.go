package espec

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-chamber/logger"
)

// MaxFreshness bounds the reply cache window.
const MaxFreshness = time.Minute

type driverConfig struct {
	freshness time.Duration
	now       func() time.Time
	logger    logger.Logger
}

func defaultDriverConfig() *driverConfig {
	return &driverConfig{
		now:    time.Now,
		logger: logger.GetLogger(),
	}
}

// Option is a functional option for configuring a Driver.
type Option interface {
	apply(*driverConfig) error
}

type optFunc func(*driverConfig) error

func (f optFunc) apply(cfg *driverConfig) error { return f(cfg) }

// WithFreshness sets how long a query reply is reused. Zero, the default,
// disables caching.
func WithFreshness(d time.Duration) Option {
	return optFunc(func(cfg *driverConfig) error {
		if d < 0 || d > MaxFreshness {
			return fmt.Errorf("espec: freshness %v out of range [0, %v]", d, MaxFreshness)
		}
		cfg.freshness = d

		return nil
	})
}

// WithClock sets the time source of the reply cache.
func WithClock(now func() time.Time) Option {
	return optFunc(func(cfg *driverConfig) error {
		if now == nil {
			return errors.New("espec: clock is nil")
		}
		cfg.now = now

		return nil
	})
}

// WithLogger sets the driver logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *driverConfig) error {
		if l == nil {
			return errors.New("espec: logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
